package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wirelog/wirelog/internal/accesslog"
)

// RequestIDHeader is the header carrying the per-request identifier.
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns a UUID request identifier when the client did
// not send one, and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// RequestIDAdapter injects the request identifier into the record top level
// under "request_id".
func RequestIDAdapter() Adapter {
	return func(r *http.Request, record accesslog.Map) {
		if id := r.Header.Get(RequestIDHeader); id != "" {
			record["request_id"] = accesslog.String(id)
		}
	}
}

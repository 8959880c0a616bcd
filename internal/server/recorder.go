package server

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"
)

// responseRecorder wraps an http.ResponseWriter, passing writes through
// while keeping the status code and a full copy of the body for the
// access-log record.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	body    bytes.Buffer
	written bool
}

var (
	_ http.ResponseWriter = (*responseRecorder)(nil)
	_ http.Flusher        = (*responseRecorder)(nil)
	_ http.Hijacker       = (*responseRecorder)(nil)
)

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w}
}

func (rec *responseRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
		rec.ResponseWriter.WriteHeader(code)
	}
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	if !rec.written {
		rec.WriteHeader(http.StatusOK)
	}
	rec.body.Write(b)
	return rec.ResponseWriter.Write(b)
}

// Status returns the response status, defaulting to 200 when the handler
// never called WriteHeader explicitly.
func (rec *responseRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// Body returns the full buffered response content.
func (rec *responseRecorder) Body() []byte {
	return rec.body.Bytes()
}

// Flush implements http.Flusher.
func (rec *responseRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker. Hijacked connections bypass the
// recorder, so their traffic is not captured.
func (rec *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rec.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

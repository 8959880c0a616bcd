package server

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/wirelog/wirelog/internal/accesslog"
	"github.com/wirelog/wirelog/internal/config"
)

// bodylessMethods lists methods for which request bodies are never captured,
// regardless of configuration.
var bodylessMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodConnect: true,
}

// Adapter mutates a freshly built record before flattening, e.g. to inject
// or redact custom fields.
type Adapter func(r *http.Request, record accesslog.Map)

// AccessLogMiddleware logs one structured access-log event per request.
// Everything besides the per-request working set is immutable after
// construction, so a single middleware value serves concurrent requests.
type AccessLogMiddleware struct {
	cfg      *config.Config
	builder  *accesslog.Builder
	rules    []accesslog.DebugRule
	adapters []Adapter
	sink     accesslog.Sink
}

// NewAccessLogMiddleware creates the middleware with the given immutable
// configuration, logging sink and optional record adapters.
func NewAccessLogMiddleware(cfg *config.Config, sink accesslog.Sink, adapters ...Adapter) *AccessLogMiddleware {
	return &AccessLogMiddleware{
		cfg:      cfg,
		builder:  accesslog.NewBuilder(cfg.AccessLogs.MaxBodySize),
		rules:    cfg.AccessLogs.Rules,
		adapters: adapters,
		sink:     sink,
	}
}

// Wrap instruments next with access logging. The event is logged on every
// path, including when the handler panics: the panic is recorded in the
// event's errors field, a 500 is written if nothing was sent yet, and the
// finalize-and-log step still runs.
func (m *AccessLogMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		body := m.captureRequestBody(r)
		rec := newResponseRecorder(w)
		holder := &extraHolder{}
		r = r.WithContext(withExtraHolder(r.Context(), holder))

		var traces []accesslog.Trace
		func() {
			defer func() {
				if p := recover(); p != nil {
					traces = append(traces, panicTrace(p))
					if !rec.written {
						http.Error(rec, "Internal server error", http.StatusInternalServerError)
					}
				}
			}()
			next.ServeHTTP(rec, r)
		}()

		m.finalize(r, rec, body, traces, holder.fields, time.Since(started))
	})
}

// captureRequestBody pre-reads the request body for methods that carry one,
// keeping at most MaxBodySize bytes for logging and handing the handler an
// untouched replacement reader. Returns nil when nothing was captured.
func (m *AccessLogMiddleware) captureRequestBody(r *http.Request) []byte {
	if bodylessMethods[r.Method] || r.Body == nil {
		return nil
	}

	full, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(full))

	if len(full) > m.cfg.AccessLogs.MaxBodySize {
		return full[:m.cfg.AccessLogs.MaxBodySize]
	}
	return full
}

// finalize builds, adapts, flattens and classifies the record, then hands
// it to the sink. Body-logging eligibility is decided on the status-derived
// severity before the debug override is applied, so a downgraded event can
// still carry its bodies.
func (m *AccessLogMiddleware) finalize(
	r *http.Request, rec *responseRecorder, body []byte,
	traces []accesslog.Trace, extra accesslog.Map, elapsed time.Duration,
) {
	level := accesslog.SeverityFor(rec.Status())
	logBodies := level >= m.cfg.BodyLogLevel()

	record := m.builder.Build(
		accesslog.RequestMeta{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Meta:   requestMeta(r),
			Body:   body,
			Extra:  extra,
		},
		traces,
		accesslog.ResponseMeta{
			Status:  rec.Status(),
			Headers: rec.Header(),
			Content: rec.Body(),
		},
		elapsed.Seconds(),
		logBodies,
	)

	for _, adapter := range m.adapters {
		adapter(r, record)
	}

	flat := accesslog.Flatten(record)
	if accesslog.ClassifyAsDebug(flat, m.rules) {
		level = slog.LevelDebug
	}

	m.sink.Log(r.Context(), level, flat)
}

// requestMeta projects an *http.Request onto the CGI-style metadata mapping
// the record builder consumes: headers carry an "http_" prefix, the content
// family is surfaced bare, plus remote_addr and server_protocol.
func requestMeta(r *http.Request) map[string]string {
	meta := map[string]string{
		"remote_addr":     clientAddress(r.RemoteAddr),
		"server_protocol": r.Proto,
	}
	if r.Host != "" {
		meta["http_host"] = r.Host
	}
	for name, values := range r.Header {
		value := strings.Join(values, ",")
		switch name {
		case "Content-Type":
			meta["content_type"] = value
		case "Content-Length":
			meta["content_length"] = value
		default:
			meta["http_"+strings.ReplaceAll(strings.ToLower(name), "-", "_")] = value
		}
	}
	if r.ContentLength > 0 {
		meta["content_length"] = strconv.FormatInt(r.ContentLength, 10)
	}
	return meta
}

func clientAddress(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func panicTrace(p interface{}) accesslog.Trace {
	return accesslog.Trace{
		fmt.Sprintf("panic: %v\n", p),
		string(debug.Stack()),
	}
}

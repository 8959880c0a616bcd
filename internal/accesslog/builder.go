package accesslog

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// BodyNotLogged is emitted when body capture is disabled or no body
	// was captured for the request.
	BodyNotLogged = "not logged"

	// BodyDecodeError is emitted when captured bytes are not valid UTF-8.
	BodyDecodeError = "error decoding body to UTF-8"

	// unknownValue is the default for absent optional metadata.
	unknownValue = "unknown"
)

// RequestMeta is the framework-agnostic view of an incoming request. The
// Meta mapping uses CGI-style keys: header fields carry an "http_" prefix
// (e.g. "http_user_agent"), the content family is surfaced as
// "content_type"/"content_length", plus "remote_addr" and
// "server_protocol". Adapters for a concrete framework produce this shape.
type RequestMeta struct {
	Method string
	Path   string
	Meta   map[string]string

	// Body holds the pre-captured request body, already truncated to the
	// configured maximum. Nil when the framework hook captured nothing.
	Body []byte

	// Extra is an optional nested mapping merged into the top level of
	// the final record, after all builder-produced fields.
	Extra Map
}

// ResponseMeta is the framework-agnostic view of an outgoing response.
// Content holds the full, untruncated body bytes.
type ResponseMeta struct {
	Status  int
	Headers http.Header
	Content []byte
}

// Trace is one exception occurrence as a sequence of trace-line fragments.
type Trace []string

// Builder assembles canonical nested access-log records. It holds only
// immutable configuration and is safe for concurrent use.
type Builder struct {
	maxBodySize int
}

// NewBuilder creates a builder that truncates logged response bodies to
// maxBodySize bytes.
func NewBuilder(maxBodySize int) *Builder {
	return &Builder{maxBodySize: maxBodySize}
}

// Build produces the canonical nested record for one request/response
// exchange. It is a pure transform: missing or malformed optional fields
// degrade to documented defaults, never to an error.
func (b *Builder) Build(req RequestMeta, traces []Trace, resp ResponseMeta, duration float64, logBodies bool) Map {
	meta := normalizeMeta(req.Meta)
	reqHeaders := requestHeaders(meta)
	respHeaders := responseHeaders(resp.Headers)

	reqBody := String(BodyNotLogged)
	respBody := String(BodyNotLogged)
	if logBodies {
		if req.Body != nil {
			reqBody = decodeBody(req.Body)
		}
		truncated := resp.Content
		if len(truncated) > b.maxBodySize {
			truncated = truncated[:b.maxBodySize]
		}
		respBody = decodeBody(truncated)
	}

	record := Map{
		"duration":         Float(duration),
		"x_client_address": String(metaOr(meta, "remote_addr", unknownValue)),
		"errors":           String(joinTraces(traces)),
		"request": Map{
			"method":       String(req.Method),
			"http_version": String(metaOr(meta, "server_protocol", unknownValue)),
			"path":         String(req.Path),
			"headers":      reqHeaders,
			"content": Map{
				"value":     reqBody,
				"size":      Int(requestContentLength(reqHeaders)),
				"mime_type": String(metaOr(meta, "content_type", unknownValue)),
			},
		},
		"response": Map{
			"status":  Int(resp.Status),
			"headers": respHeaders,
			"content": Map{
				"value":     respBody,
				"size":      Int(len(resp.Content)),
				"mime_type": String(responseMimeType(resp.Headers)),
			},
		},
	}

	// The extra-fields merge runs last so call-site fields win over
	// builder-produced top-level keys.
	for k, v := range req.Extra {
		record[k] = v
	}

	return record
}

func normalizeMeta(meta map[string]string) map[string]string {
	normalized := make(map[string]string, len(meta))
	for k, v := range meta {
		normalized[strings.ToLower(k)] = v
	}
	return normalized
}

// requestHeaders extracts header fields from the normalized metadata:
// "http_"-prefixed keys are headers with the prefix stripped, the
// "content_" family keeps its full key, everything else is not a header.
// Duplicate normalized names resolve last-write-wins.
func requestHeaders(meta map[string]string) Map {
	headers := Map{}
	for k, v := range meta {
		switch {
		case strings.HasPrefix(k, "http_"):
			headers[strings.TrimPrefix(k, "http_")] = String(v)
		case strings.HasPrefix(k, "content_"):
			headers[k] = String(v)
		}
	}
	return headers
}

// responseHeaders lowercases every header name and joins multi-valued
// headers with commas.
func responseHeaders(h http.Header) Map {
	headers := make(Map, len(h))
	for name, values := range h {
		headers[strings.ToLower(name)] = String(strings.Join(values, ","))
	}
	return headers
}

// requestContentLength parses the normalized content_length header,
// defaulting to 0 when absent or unparsable.
func requestContentLength(headers Map) int64 {
	raw, ok := headers["content_length"]
	if !ok {
		return 0
	}
	s, ok := raw.(String)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// responseMimeType reads content-type from the raw header collection, not
// the normalized mapping.
func responseMimeType(h http.Header) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	return unknownValue
}

func decodeBody(body []byte) String {
	if !utf8.Valid(body) {
		return BodyDecodeError
	}
	return String(body)
}

// joinTraces joins each occurrence's fragments into one string, then joins
// occurrences with newlines. An empty list yields an empty string.
func joinTraces(traces []Trace) string {
	joined := make([]string, len(traces))
	for i, trace := range traces {
		joined[i] = strings.Join(trace, "")
	}
	return strings.Join(joined, "\n")
}

func metaOr(meta map[string]string, key, fallback string) string {
	if v, ok := meta[key]; ok {
		return v
	}
	return fallback
}

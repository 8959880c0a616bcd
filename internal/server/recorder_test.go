package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderDefaultsTo200(t *testing.T) {
	rec := newResponseRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.Status())
}

func TestRecorderCapturesStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newResponseRecorder(rr)

	rec.WriteHeader(http.StatusTeapot)
	_, _ = rec.Write([]byte("short"))
	_, _ = rec.Write([]byte(" and stout"))

	assert.Equal(t, http.StatusTeapot, rec.Status())
	assert.Equal(t, "short and stout", string(rec.Body()))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "short and stout", rr.Body.String(), "writes pass through")
}

func TestRecorderImplicitWriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newResponseRecorder(rr)

	_, _ = rec.Write([]byte("hello"))

	assert.Equal(t, http.StatusOK, rec.Status())
	assert.True(t, rec.written)
}

func TestRecorderIgnoresDuplicateWriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newResponseRecorder(rr)

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusNotFound, rec.Status())
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

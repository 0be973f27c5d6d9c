package obs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/app/calsync"
	"rentcal/internal/app/policies"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestMetricsObserveSync(t *testing.T) {
	m := NewMetrics()
	m.ObserveLoad(calsync.SourceRemote, calsync.ResultOK)
	m.ObserveLoad(calsync.SourceRemote, calsync.ResultOK)
	m.ObserveLoad(calsync.SourceFallback, calsync.ResultError)
	m.ObserveCommit("remote", calsync.ResultOK, 31)
	m.ObserveCommit("remote", calsync.ResultError, 31)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loads.WithLabelValues(calsync.SourceRemote, calsync.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(calsync.SourceFallback, calsync.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("remote", calsync.ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.commitRecords))
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveLoad(calsync.SourceLocal, calsync.ResultOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rentcal_sync_loads_total{result="ok",source="local"} 1`)
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := HealthHandlers{Checks: map[string]policies.Pinger{
		"cache":  pingFunc(func(context.Context) error { return nil }),
		"remote": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}}
	r := gin.New()
	r.GET("/readyz", h.Readyz)
	r.GET("/livez", h.Livez)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "remote: connection refused")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	mw := Middleware{}
	r := gin.New()
	r.Use(mw.RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "production", "warn")
	log.Info("hidden")
	log.Warn("shown", "entity_id", "svc-1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"entity_id":"svc-1"`)
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordReceived("host:widget", "accepted")
	a.RecordReceived("host:widget", "untrusted_origin")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SignalsReceived.WithLabelValues("host:widget", "accepted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SignalsReceived.WithLabelValues("host:widget", "accepted")))

	snap := a.GetSnapshot()
	assert.Equal(t, int64(2), snap.Received)
	assert.Equal(t, int64(1), snap.Dropped)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReceived("p", "accepted")
		m.RecordSent("p", "delivered")
		m.RecordEffect("p", "ping", time.Millisecond)
		m.RecordUnknownEffect("p")
		m.RecordEffectPanic("p", "ping")
		m.RecordScriptException("ping")
		m.IncListeners("host")
		m.DecListeners("host")
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordWSFrame("in", "ok")
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	})
	assert.Equal(t, Snapshot{}, m.GetSnapshot())
}

func TestSentSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordSent("host:widget", "delivered")
	m.RecordSent("host:widget", "surface_absent")
	m.RecordEffect("guest", "ping", time.Millisecond)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(1), snap.Sent)
	assert.Equal(t, int64(1), snap.Undelivered)
	assert.Equal(t, int64(1), snap.Dispatched)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/frames/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frames/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/frames/:id", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "framebridge_http_requests_total"))
}

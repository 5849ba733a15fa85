package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/domain/documents/posting"
	"konditer/internal/domain/reconcile"
)

func TestMetrics_HTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/purchases/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/purchases/abc", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/v1/purchases/:id", "GET", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("unmatched", "GET", "404")))
}

func TestMetrics_Transitions(t *testing.T) {
	m := NewMetrics()
	m.ObserveTransition("purchase", "confirm", posting.OutcomeSuccess, 3*time.Millisecond)
	m.ObserveTransition("purchase", "confirm", posting.OutcomeRejected, time.Millisecond)
	m.ObserveTransition("purchase", "confirm", posting.OutcomeSuccess, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("purchase", "confirm", posting.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("purchase", "confirm", posting.OutcomeRejected)))
}

func TestMetrics_Reconcile(t *testing.T) {
	m := NewMetrics()
	m.ObserveReconcile(reconcile.Summary{Updated: 2, Created: 1, Orphaned: 3}, nil)
	m.ObserveReconcile(reconcile.Summary{}, errors.New("serialization failure"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileRuns.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconcileChanged.WithLabelValues("updated")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reconcileChanged.WithLabelValues("orphaned")))
	assert.Positive(t, testutil.ToFloat64(m.reconcileLast))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTransition("sale", "revert", posting.OutcomeSuccess, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `konditer_document_transitions_total{document_type="sale",operation="revert",outcome="success"} 1`))

	var nilMetrics *Metrics
	w = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	nilMetrics.ObserveTransition("sale", "confirm", posting.OutcomeError, 0)
}

func TestInitTracer_WithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "konditer-test"})
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/properties/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/properties/{id}", "418"))
	assert.Equal(t, 3.0, got)
}

func TestWorkflowCounters(t *testing.T) {
	m := New()

	m.FavoriteToggled("added")
	m.FavoriteToggled("added")
	m.SubmissionFinished("create", OutcomeSuccess)
	m.ModerationAction("approve", OutcomeSuccess)
	m.ObjectsCompensated("rollback", 3)
	m.ObjectsCompensated("rollback", 0)
	m.BytesUploaded(2048)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.favorites.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moderation.WithLabelValues("approve", OutcomeSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.compensations.WithLabelValues("rollback")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.uploadedBytes))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FavoriteToggled("added")
		m.SubmissionFinished("edit", OutcomeFailed)
		m.ModerationAction("reject", OutcomeSuccess)
		m.ObjectsCompensated("sweep", 1)
		m.BytesUploaded(1)
		m.RegisterGauge("x", "x", func() float64 { return 0 })
	})
}

func TestHandler_ExposesGauge(t *testing.T) {
	m := New()
	m.RegisterGauge("sse_clients", "Connected SSE clients", func() float64 { return 7 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "estately_sse_clients 7"))
}

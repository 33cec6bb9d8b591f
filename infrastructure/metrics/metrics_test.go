package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/infrastructure/config"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "lattice"})

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	m.ClientsChanged(3)
	m.Broadcasted("bookings-changed")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `lattice_http_requests_total{method="GET",route="/api/bookings/{id}",status="404"} 2`)
	assert.Contains(t, text, `lattice_event_clients 3`)
	assert.Contains(t, text, `lattice_events_broadcast_total{type="bookings-changed"} 1`)
}

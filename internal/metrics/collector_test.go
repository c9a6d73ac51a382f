package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/optimistic"
)

func TestCollector_Recorder(t *testing.T) {
	c := NewCollector("canvas")

	c.MutationSettled(optimistic.KindBatchUpdate, optimistic.PartiallyConfirmed)
	c.MutationSettled(optimistic.KindBatchUpdate, optimistic.PartiallyConfirmed)
	c.RetryScheduled(optimistic.KindUpdate)
	c.CacheSize(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Mutations.WithLabelValues("batch_update", "partially_confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Retries.WithLabelValues("update")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.CacheShapes))
}

func TestCollector_CollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector("canvas"), NewCollector("canvas")
	a.RetryScheduled("update")

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Retries.WithLabelValues("update")))
}

func TestCollector_MiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("canvas")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Post("/api/v0/shapes/{id}/update", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v0/shapes/"+id+"/update", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/api/v0/shapes/{id}/update", "404"))
	assert.Equal(t, 2.0, got)
}

func TestCollector_MiddlewareTrimsIndexSlash(t *testing.T) {
	c := NewCollector("canvas")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Route("/api/v0/shapes", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {})
	})

	for _, path := range []string{"/api/v0/shapes", "/api/v0/shapes/"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v0/shapes", "200")))
	assert.Equal(t, "/", routeLabel("/"))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("canvas")
	c.CacheSize(3)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "canvas_sync_cache_shapes 3")
}

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canvas/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig(srv.URL)
	cfg.ListDelay = time.Millisecond
	return New(cfg, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_UpdateShapeNotFoundUnwraps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/{id}/update", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.PathValue("id"))
		http.Error(w, "missing", http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	err := c.UpdateShape(context.Background(), "abc", domain.Fields{XOffset: domain.Float(1)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestClient_UpdateShapeSendsNullPageID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/{id}/update", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		v, present := body["pageId"]
		assert.True(t, present)
		assert.Nil(t, v)
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := newTestClient(t, mux)

	err := c.UpdateShape(context.Background(), "a", domain.Fields{PageID: domain.AssignPage("")})
	assert.NoError(t, err)
}

func TestClient_BatchUpdateMultiStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/batch-update", func(w http.ResponseWriter, r *http.Request) {
		var updates []domain.ShapeUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&updates))
		require.Len(t, updates, 2)
		writeJSON(w, http.StatusMultiStatus, []domain.BatchItemResult{
			{ShapeID: updates[0].ShapeID, Success: true, Status: 200},
			{ShapeID: updates[1].ShapeID, Success: false, Status: 404},
		})
	})
	c := newTestClient(t, mux)

	items, err := c.BatchUpdate(context.Background(), []domain.ShapeUpdate{
		{ShapeID: "a", Fields: domain.Fields{XOffset: domain.Float(1)}},
		{ShapeID: "b", Fields: domain.Fields{XOffset: domain.Float(2)}},
	})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[1].Success)
}

func TestClient_BatchUpdateOKHasNoItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/batch-update", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	c := newTestClient(t, mux)

	items, err := c.BatchUpdate(context.Background(), []domain.ShapeUpdate{{ShapeID: "a"}})
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestClient_ListShapesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/shapes", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"shapes": []domain.Shape{{ID: "p", Type: domain.ShapeTypePage}},
		})
	})
	c := newTestClient(t, mux)

	shapes, err := c.ListShapes(context.Background())

	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, "p", shapes[0].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ListShapesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/shapes", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	})
	c := newTestClient(t, mux)

	_, err := c.ListShapes(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CopyAndBatchDeleteBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/copy", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Shapes []domain.Shape `json:"shapes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("POST /api/v0/shapes/batch-delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ShapeIDs []string `json:"shapeIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.ShapeIDs)
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := newTestClient(t, mux)

	copied, err := c.CopyShapes(context.Background(), []domain.Shape{{ID: "c1", Type: domain.ShapeTypeText}})
	require.NoError(t, err)
	assert.Equal(t, "c1", copied[0].ID)

	assert.NoError(t, c.BatchDelete(context.Background(), []string{"a", "b"}))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})
	c := newTestClient(t, mux)

	for i := 0; i < 5; i++ {
		assert.Error(t, c.DeleteShape(context.Background(), "a"))
	}
	err := c.DeleteShape(context.Background(), "a")

	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/shapes/{id}/update", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "missing", http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, c.UpdateShape(context.Background(), "a", domain.Fields{}), domain.ErrNotFound)
	}
	assert.Equal(t, int32(10), calls.Load())
}

func TestClient_Paths(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/multipage-paths/create", func(w http.ResponseWriter, r *http.Request) {
		var p domain.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		p.ID = "path-1"
		writeJSON(w, http.StatusOK, map[string]any{"multipagePath": p})
	})
	mux.HandleFunc("GET /api/v0/multipage-paths", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"paths": []domain.Path{{ID: "path-1"}}})
	})
	c := newTestClient(t, mux)

	created, err := c.CreatePath(context.Background(), domain.Path{
		ShapeStartID: "a", ShapeStartHandleType: domain.HandleRight,
		ShapeEndID: "b", ShapeEndHandleType: domain.HandleLeft,
		Direction: domain.DirectionHorizontal,
	})
	require.NoError(t, err)
	assert.Equal(t, "path-1", created.ID)
	assert.Equal(t, "a", created.ShapeStartID)

	paths, err := c.ListPaths(context.Background())
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	var n int
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		n++
		if n == 1 {
			return &RetryableError{Err: assert.AnError}
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, n)
}

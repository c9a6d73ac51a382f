package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"canvas/internal/domain"
)

type copyRequest struct {
	Shapes []domain.Shape `json:"shapes" validate:"required,min=1"`
}

type batchDeleteRequest struct {
	ShapeIDs []string `json:"shapeIds" validate:"required,min=1,dive,required"`
}

func (s *Server) listShapes(w http.ResponseWriter, r *http.Request) {
	shapes, err := s.shapes.ListShapes()
	if err != nil {
		s.fail(w, r, "list shapes", err)
		return
	}
	s.metrics.ShapesStored.Set(float64(len(shapes)))
	respondJSON(w, http.StatusOK, map[string]any{"shapes": shapes})
}

func (s *Server) createShape(w http.ResponseWriter, r *http.Request) {
	var shape domain.Shape
	if !s.decode(w, r, &shape) {
		return
	}
	if err := s.shapes.CreateShape(&shape); err != nil {
		s.fail(w, r, "create shape", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"shape": shape})
}

func (s *Server) updateShape(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var fields domain.Fields
	if !decodeJSON(w, r, &fields) {
		return
	}
	shape, err := s.shapes.UpdateShape(id, fields)
	if err != nil {
		s.fail(w, r, "update shape", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"shape": shape})
}

// batchUpdate answers 200 when every item applied, 404 when every item
// referenced a missing shape (so clients retry the whole batch) and 207
// with per-item results otherwise.
func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var updates []domain.ShapeUpdate
	if !decodeJSON(w, r, &updates) {
		return
	}
	for _, u := range updates {
		if u.ShapeID == "" {
			respondError(w, http.StatusBadRequest, "validation error: shapeId is required")
			return
		}
	}

	outcomes, err := s.shapes.BatchUpdate(updates)
	if err != nil {
		s.fail(w, r, "batch update", err)
		return
	}

	results := make([]domain.BatchItemResult, len(outcomes))
	failed, missing := 0, 0
	for i, o := range outcomes {
		status := statusOf(o.Err)
		results[i] = domain.BatchItemResult{ShapeID: o.ShapeID, Success: o.Err == nil, Status: status}
		if o.Err != nil {
			failed++
			if status == http.StatusNotFound {
				missing++
			}
		}
	}
	switch {
	case failed == 0:
		respondJSON(w, http.StatusOK, results)
	case missing == len(results):
		respondError(w, http.StatusNotFound, "no shape of the batch exists")
	default:
		s.log.Info("batch update partially applied",
			zap.Int("items", len(results)), zap.Int("failed", failed))
		respondJSON(w, http.StatusMultiStatus, results)
	}
}

func (s *Server) deleteShape(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.shapes.DeleteShape(id); err != nil {
		s.fail(w, r, "delete shape", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.shapes.BatchDelete(req.ShapeIDs); err != nil {
		s.fail(w, r, "batch delete", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"shapeIds": req.ShapeIDs})
}

// copyShapes stores client-prepared copies. Ids are chosen by the client so
// its optimistic cache already holds the final keys.
func (s *Server) copyShapes(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if !s.decode(w, r, &req) {
		return
	}
	seen := make(map[string]struct{}, len(req.Shapes))
	for _, sh := range req.Shapes {
		if _, dup := seen[sh.ID]; dup {
			respondError(w, http.StatusBadRequest, "duplicate shape id "+sh.ID)
			return
		}
		seen[sh.ID] = struct{}{}
	}

	created, err := s.shapes.InsertShapes(req.Shapes)
	if err != nil {
		s.fail(w, r, "copy shapes", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"shapes": created})
}

func (s *Server) requireShape(id string) error {
	_, err := s.shapes.GetShape(id)
	return err
}

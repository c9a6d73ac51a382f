package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"canvas/internal/domain"
	"canvas/internal/geometry"
	"canvas/internal/route"
)

func (s *Server) listPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := s.paths.ListPaths()
	if err != nil {
		s.fail(w, r, "list paths", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

func (s *Server) getPath(w http.ResponseWriter, r *http.Request) {
	p, err := s.paths.GetPath(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get path", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"multipagePath": p})
}

// createPath stores a connector, replacing the one leaving the same shape.
// Without an explicit exclude list the pages around the start shape become
// the obstacles.
func (s *Server) createPath(w http.ResponseWriter, r *http.Request) {
	var p domain.Path
	if !s.decode(w, r, &p) {
		return
	}
	for _, id := range []string{p.ShapeStartID, p.ShapeEndID} {
		if err := s.requireShape(id); err != nil {
			s.fail(w, r, "create path", err)
			return
		}
	}
	if p.PageExcludeList == nil {
		shapes, err := s.shapes.ListShapes()
		if err != nil {
			s.fail(w, r, "create path", err)
			return
		}
		for _, sh := range shapes {
			if sh.ID == p.ShapeStartID {
				p.PageExcludeList = route.ExcludeList(route.Obstacles(sh, shapes))
				break
			}
		}
	}
	if err := s.paths.CreatePath(&p); err != nil {
		s.fail(w, r, "create path", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"multipagePath": p})
}

func (s *Server) updatePath(w http.ResponseWriter, r *http.Request) {
	var u domain.PathUpdate
	if !s.decode(w, r, &u) {
		return
	}
	if u.ShapeEndID != nil {
		if err := s.requireShape(*u.ShapeEndID); err != nil {
			s.fail(w, r, "update path", err)
			return
		}
	}
	p, err := s.paths.UpdatePath(chi.URLParam(r, "id"), u)
	if err != nil {
		s.fail(w, r, "update path", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"multipagePath": p})
}

func (s *Server) deletePath(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.paths.DeletePath(id); err != nil {
		s.fail(w, r, "delete path", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

type routeResponse struct {
	Points []geometry.Point `json:"points"`
	Length float64          `json:"length"`
}

// routePath renders the orthogonal polyline of a stored path.
func (s *Server) routePath(w http.ResponseWriter, r *http.Request) {
	p, err := s.paths.GetPath(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "route path", err)
		return
	}
	shapes, err := s.shapes.ListShapes()
	if err != nil {
		s.fail(w, r, "route path", err)
		return
	}
	pts, err := route.Resolve(*p, shapes)
	if err != nil {
		s.fail(w, r, "route path", err)
		return
	}
	length, _ := route.Length(pts)
	respondJSON(w, http.StatusOK, routeResponse{Points: pts, Length: length})
}

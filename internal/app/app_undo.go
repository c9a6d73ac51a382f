package app

import (
	"reflect"

	"go.uber.org/zap"

	"canvas/internal/domain"
	"canvas/internal/optimistic"
)

// ============================================================
// Undo / Redo
// ============================================================

// Undo restores the canvas as it was before the last gesture.
func (a *App) Undo() ([]*optimistic.Mutation, error) {
	current := a.Shapes()
	snap, ok := a.state.stepBack(current)
	if !ok {
		return nil, ErrNothingToUndo
	}
	a.log.Debug("undo", zap.String("label", snap.label))
	return a.restore(current, snap.shapes), nil
}

// Redo re-applies the last undone gesture.
func (a *App) Redo() ([]*optimistic.Mutation, error) {
	current := a.Shapes()
	snap, ok := a.state.stepForward(current)
	if !ok {
		return nil, ErrNothingToRedo
	}
	a.log.Debug("redo", zap.String("label", snap.label))
	return a.restore(current, snap.shapes), nil
}

// restore turns the difference between current and target into engine
// mutations: re-creations first so pages exist before children point at
// them, then updates, then deletions.
func (a *App) restore(current, target []domain.Shape) []*optimistic.Mutation {
	byID := make(map[string]domain.Shape, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}
	wanted := make(map[string]bool, len(target))

	var (
		recreate []domain.Shape
		updates  []domain.ShapeUpdate
		remove   []string
	)
	for _, t := range target {
		wanted[t.ID] = true
		cur, ok := byID[t.ID]
		if !ok {
			recreate = append(recreate, t)
			continue
		}
		if want := restoreFields(t); !reflect.DeepEqual(restoreFields(cur), want) {
			updates = append(updates, domain.ShapeUpdate{ShapeID: t.ID, Fields: want})
		}
	}
	for _, s := range current {
		if !wanted[s.ID] {
			remove = append(remove, s.ID)
		}
	}

	var out []*optimistic.Mutation
	if len(recreate) > 0 {
		out = append(out, a.engine.CopyShapes(recreate))
	}
	if len(updates) > 0 {
		out = append(out, a.engine.UpdateShapes(updates))
	}
	if len(remove) > 0 {
		out = append(out, a.engine.DeleteShapes(remove))
		a.state.forget(remove)
	}
	return out
}

// restoreFields is every mutable field of s with the page stated
// explicitly, so the engine does not re-resolve it.
func restoreFields(s domain.Shape) domain.Fields {
	f := domain.GeometryOf(s)
	f.IsInstanceChild = &s.IsInstanceChild
	f.Title = domain.String(s.Title)
	f.Description = domain.String(s.Description)
	f.Subtype = domain.String(s.Subtype)
	f.Content = domain.String(s.Content)
	if len(s.Style) > 0 {
		f.Style = make(map[string]string, len(s.Style))
		for k, v := range s.Style {
			f.Style[k] = v
		}
	}
	return f
}

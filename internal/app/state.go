package app

import (
	"sync"

	"canvas/internal/domain"
)

// HistoryLimit bounds the undo stack; the oldest entries are dropped.
const HistoryLimit = 50

// snapshot is one undo/redo history entry: the full shape list as it was
// before a gesture.
type snapshot struct {
	label  string
	shapes []domain.Shape
}

// State is the per-canvas UI state owned by App: the selection and the
// undo/redo stacks. It starts empty.
type State struct {
	mu        sync.Mutex
	selection []string
	undo      []snapshot
	redo      []snapshot
	limit     int
}

func NewState() *State {
	return &State{limit: HistoryLimit}
}

// Select replaces the selection, or extends it when additive is set.
// Duplicate ids are ignored.
func (s *State) Select(ids []string, additive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !additive {
		s.selection = s.selection[:0]
	}
	for _, id := range ids {
		if !contains(s.selection, id) {
			s.selection = append(s.selection, id)
		}
	}
}

// Toggle flips id in or out of the selection (shift-click).
func (s *State) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sel := range s.selection {
		if sel == id {
			s.selection = append(s.selection[:i], s.selection[i+1:]...)
			return
		}
	}
	s.selection = append(s.selection, id)
}

func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()
}

// Selection returns the selected ids in selection order.
func (s *State) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// SelectionSet returns the selection as a set.
func (s *State) SelectionSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(s.selection))
	for _, id := range s.selection {
		set[id] = struct{}{}
	}
	return set
}

// forget drops ids that no longer exist from the selection.
func (s *State) forget(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.selection[:0]
	for _, id := range s.selection {
		if !contains(ids, id) {
			kept = append(kept, id)
		}
	}
	s.selection = kept
}

// Record pushes the pre-gesture shapes onto the undo stack and clears redo.
func (s *State) Record(label string, before []domain.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = append(s.undo, snapshot{label: label, shapes: domain.CloneShapes(before)})
	if len(s.undo) > s.limit {
		s.undo = s.undo[len(s.undo)-s.limit:]
	}
	s.redo = nil
}

// stepBack pops the last undo entry and stores current for redo.
func (s *State) stepBack(current []domain.Shape) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return snapshot{}, false
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, snapshot{label: last.label, shapes: domain.CloneShapes(current)})
	return last, true
}

// stepForward pops the last redo entry and stores current for undo.
func (s *State) stepForward(current []domain.Shape) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return snapshot{}, false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, snapshot{label: next.label, shapes: domain.CloneShapes(current)})
	return next, true
}

// History reports the stack depths.
func (s *State) History() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo), len(s.redo)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

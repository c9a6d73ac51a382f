package optimistic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"canvas/internal/domain"
)

var (
	ErrPartialFailure = errors.New("some batch items failed")
	ErrCanceled       = errors.New("mutation cancelled")
)

// State is the lifecycle position of a mutation.
type State int32

const (
	Pending State = iota
	Retrying
	Confirmed
	PartiallyConfirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Retrying:
		return "retrying"
	case Confirmed:
		return "confirmed"
	case PartiallyConfirmed:
		return "partially_confirmed"
	case RolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// Final reports whether no further transition can happen.
func (s State) Final() bool {
	return s == Confirmed || s == PartiallyConfirmed || s == RolledBack
}

const (
	KindUpdate      = "update"
	KindBatchUpdate = "batch_update"
	KindCreate      = "create"
	KindCopy        = "copy"
	KindDelete      = "delete"
	KindBatchDelete = "batch_delete"
)

// Mutation is the handle for one optimistic change travelling to the remote
// store. The cache already reflects it when the handle is returned.
type Mutation struct {
	ID   string
	Kind string
	Keys []string

	tx      *Tx
	state   atomic.Int32
	retries atomic.Int32
	done    chan struct{}

	mu    sync.Mutex
	items []domain.BatchItemResult
	err   error
}

func newMutation(id, kind string, tx *Tx) *Mutation {
	m := &Mutation{ID: id, Kind: kind, tx: tx, done: make(chan struct{})}
	if tx != nil {
		m.Keys = tx.Keys()
	}
	return m
}

func (m *Mutation) State() State { return State(m.state.Load()) }

func (m *Mutation) Retries() int { return int(m.retries.Load()) }

// Done is closed once the mutation reached a final state.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Items returns the per-item results of a batch update, if any.
func (m *Mutation) Items() []domain.BatchItemResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BatchItemResult(nil), m.items...)
}

func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mutation) settle(s State, items []domain.BatchItemResult, err error) {
	m.mu.Lock()
	m.items = items
	m.err = err
	m.mu.Unlock()
	m.state.Store(int32(s))
	close(m.done)
}

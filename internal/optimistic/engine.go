package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canvas/internal/domain"
	"canvas/internal/geometry"
	"canvas/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Optimistic Sync Engine: local-first shape mutations
// ─────────────────────────────────────────────────────────────

// Policy controls how calls to the remote store are retried.
// A not-found answer is retried after (attempt+1) × RetryDelay, at most
// MaxRetries times, for single and batch updates alike.
type Policy struct {
	RetryDelay  time.Duration
	MaxRetries  int
	CallTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RetryDelay:  300 * time.Millisecond,
		MaxRetries:  5,
		CallTimeout: 10 * time.Second,
	}
}

// Deps holds everything the engine needs from the outside.
type Deps struct {
	Remote   Remote
	Logger   *zap.Logger
	Emitter  service.EventEmitter
	Recorder Recorder
	Policy   Policy
}

// Engine owns the local cache. Every mutation is applied to the cache
// right away and then confirmed, retried or rolled back in the background.
type Engine struct {
	cache    *Cache
	remote   Remote
	log      *zap.Logger
	emitter  service.EventEmitter
	recorder Recorder
	sched    *Scheduler

	policyMu sync.RWMutex
	policy   Policy

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	pending  atomic.Int64
	closed   atomic.Bool
}

func New(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Policy == (Policy{}) {
		deps.Policy = DefaultPolicy()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cache:    NewCache(),
		remote:   deps.Remote,
		log:      deps.Logger,
		emitter:  deps.Emitter,
		recorder: deps.Recorder,
		sched:    NewScheduler(),
		policy:   deps.Policy,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Cache exposes the read side of the local cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Pending is the number of mutations not yet settled.
func (e *Engine) Pending() int { return int(e.pending.Load()) }

func (e *Engine) Policy() Policy {
	e.policyMu.RLock()
	defer e.policyMu.RUnlock()
	return e.policy
}

// SetPolicy swaps the retry policy; in-flight mutations pick it up on their
// next attempt.
func (e *Engine) SetPolicy(p Policy) {
	e.policyMu.Lock()
	e.policy = p
	e.policyMu.Unlock()
	e.log.Info("sync policy updated",
		zap.Duration("retry_delay", p.RetryDelay),
		zap.Int("max_retries", p.MaxRetries))
}

// Close cancels pending retries, aborts in-flight calls and waits for them
// to settle. Cancelled mutations are rolled back.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	e.sched.Stop()
	e.inflight.Wait()
}

// ── Apply ──────────────────────────────────────────────────

// Apply mutates the cache synchronously and returns the transaction holding
// the pre-images. For every update that moves a shape and does not name a
// pageId itself, the host page is recomputed against the pre-batch state:
// siblings in the same batch never see each other's new positions.
func (e *Engine) Apply(updates []domain.ShapeUpdate) *Tx {
	e.cache.mu.Lock()
	defer e.cache.mu.Unlock()
	tx, _ := e.applyLocked(updates)
	return tx
}

// applyLocked also returns the updates as they must be sent: every resolved
// pageId is written into the fields so the remote store agrees with the
// cache. The caller holds the cache lock.
func (e *Engine) applyLocked(updates []domain.ShapeUpdate) (*Tx, []domain.ShapeUpdate) {
	c := e.cache

	before := make(map[string]domain.Shape, len(updates))
	for _, u := range updates {
		if s, ok := c.shapes[u.ShapeID]; ok {
			before[u.ShapeID] = s.Clone()
		}
	}
	var pages []domain.Shape
	for _, id := range c.order {
		if s := c.shapes[id]; s.IsPage() {
			pages = append(pages, s.Clone())
		}
	}

	tx := c.Begin()
	sent := make([]domain.ShapeUpdate, 0, len(updates))
	for _, u := range updates {
		sent = append(sent, u)
		base, ok := before[u.ShapeID]
		if !ok {
			e.log.Debug("update for unknown shape", zap.String("shape_id", u.ShapeID))
			continue
		}
		next := c.shapes[u.ShapeID].Clone()
		u.Fields.ApplyTo(&next)
		if u.Fields.TouchesPosition() && u.Fields.PageID == nil && !next.IsPage() {
			candidate := base
			u.Fields.ApplyTo(&candidate)
			next.PageID = geometry.HostPageID(candidate, pages)
			sent[len(sent)-1].Fields.PageID = domain.AssignPage(next.PageID)
		}
		if next.IsPage() {
			next.PageID = ""
		}
		tx.putLocked(next)
	}
	return tx, sent
}

// ── Public mutations ───────────────────────────────────────

// UpdateShapes applies updates optimistically and submits them. One update
// goes through the single-shape call, more than one through the batch call.
func (e *Engine) UpdateShapes(updates []domain.ShapeUpdate) *Mutation {
	if len(updates) == 0 {
		m := newMutation(uuid.New().String(), KindBatchUpdate, nil)
		m.settle(Confirmed, nil, nil)
		return m
	}
	e.cache.mu.Lock()
	tx, sent := e.applyLocked(updates)
	e.pending.Add(1)
	e.cache.mu.Unlock()

	if len(sent) == 1 {
		m := newMutation(uuid.New().String(), KindUpdate, tx)
		e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
			return nil, e.remote.UpdateShape(ctx, sent[0].ShapeID, sent[0].Fields)
		})
		return m
	}
	m := newMutation(uuid.New().String(), KindBatchUpdate, tx)
	e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
		return e.remote.BatchUpdate(ctx, sent)
	})
	return m
}

// CreateShape inserts s (carrying a client-generated id) and submits it.
// The id is final: the confirmation never remaps it.
func (e *Engine) CreateShape(s domain.Shape) *Mutation {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	e.cache.mu.Lock()
	tx := e.cache.Begin()
	tx.putLocked(s)
	e.pending.Add(1)
	e.cache.mu.Unlock()
	m := newMutation(uuid.New().String(), KindCreate, tx)
	e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
		created, err := e.remote.CreateShape(ctx, s)
		if err != nil {
			return nil, err
		}
		e.reconcile([]domain.Shape{created})
		return nil, nil
	})
	return m
}

// CopyShapes inserts already-duplicated shapes (fresh ids) and submits them
// as one bulk copy.
func (e *Engine) CopyShapes(shapes []domain.Shape) *Mutation {
	e.cache.mu.Lock()
	tx := e.cache.Begin()
	for _, s := range shapes {
		tx.putLocked(s)
	}
	e.pending.Add(1)
	e.cache.mu.Unlock()
	sent := domain.CloneShapes(shapes)
	m := newMutation(uuid.New().String(), KindCopy, tx)
	e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
		created, err := e.remote.CopyShapes(ctx, sent)
		if err != nil {
			return nil, err
		}
		e.reconcile(created)
		return nil, nil
	})
	return m
}

// DeleteShapes removes ids from the cache and orphans any child pointing at
// a removed page.
func (e *Engine) DeleteShapes(ids []string) *Mutation {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	c := e.cache
	c.mu.Lock()
	tx := c.Begin()
	for _, id := range append([]string(nil), c.order...) {
		s := c.shapes[id]
		if !removed[id] && s.PageID != "" && removed[s.PageID] {
			orphan := s.Clone()
			orphan.PageID = ""
			tx.putLocked(orphan)
		}
	}
	for _, id := range ids {
		tx.removeLocked(id)
	}
	e.pending.Add(1)
	c.mu.Unlock()

	sent := append([]string(nil), ids...)
	if len(sent) == 1 {
		m := newMutation(uuid.New().String(), KindDelete, tx)
		e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
			return nil, e.remote.DeleteShape(ctx, sent[0])
		})
		return m
	}
	m := newMutation(uuid.New().String(), KindBatchDelete, tx)
	e.submit(m, func(ctx context.Context) ([]domain.BatchItemResult, error) {
		return nil, e.remote.BatchDelete(ctx, sent)
	})
	return m
}

// Refresh reloads the cache from the remote store. It is skipped (false)
// while mutations are pending so optimistic state is not clobbered.
// Mutations count as pending from the moment they touch the cache, and the
// final idle check happens under the cache lock together with the replace.
func (e *Engine) Refresh(ctx context.Context) (bool, error) {
	if e.Pending() > 0 {
		return false, nil
	}
	shapes, err := e.remote.ListShapes(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh shapes: %w", err)
	}

	c := e.cache
	c.mu.Lock()
	if e.pending.Load() > 0 {
		c.mu.Unlock()
		return false, nil
	}
	c.replaceLocked(shapes)
	c.mu.Unlock()

	e.recorder.CacheSize(len(shapes))
	return true, nil
}

// Load seeds the cache without contacting the remote store.
func (e *Engine) Load(shapes []domain.Shape) {
	e.cache.replace(shapes)
	e.recorder.CacheSize(len(shapes))
}

// reconcile writes server copies of confirmed shapes over the cached ones,
// unless they were removed locally in the meantime.
func (e *Engine) reconcile(shapes []domain.Shape) {
	c := e.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range shapes {
		if _, ok := c.shapes[s.ID]; ok {
			c.putLocked(s, -1)
		}
	}
}

// ── Dispatch ───────────────────────────────────────────────

type remoteCall func(ctx context.Context) ([]domain.BatchItemResult, error)

// submit dispatches call for m. The caller has already counted m as
// pending while it held the cache lock.
func (e *Engine) submit(m *Mutation, call remoteCall) {
	if e.closed.Load() {
		e.fail(m, ErrCanceled)
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.attempt(m, call)
	}()
}

func (e *Engine) attempt(m *Mutation, call remoteCall) {
	p := e.Policy()
	ctx, cancel := context.WithTimeout(e.ctx, p.CallTimeout)
	items, err := call(ctx)
	cancel()

	switch {
	case err == nil && allSucceeded(items):
		m.tx.Commit()
		e.finish(m, Confirmed, items, nil)

	case err == nil:
		e.partial(m, items)

	case errors.Is(err, domain.ErrNotFound) && int(m.retries.Load()) < p.MaxRetries:
		n := m.retries.Add(1)
		delay := time.Duration(n) * p.RetryDelay
		m.state.Store(int32(Retrying))
		e.recorder.RetryScheduled(m.Kind)
		e.log.Debug("shape not visible yet, retrying",
			zap.String("mutation_id", m.ID),
			zap.String("kind", m.Kind),
			zap.Int32("attempt", n),
			zap.Duration("delay", delay))
		e.sched.After(delay,
			func() { e.attempt(m, call) },
			func() { e.fail(m, ErrCanceled) })

	default:
		e.fail(m, err)
	}
}

func (e *Engine) partial(m *Mutation, items []domain.BatchItemResult) {
	var failed []string
	for _, it := range items {
		if !it.Success {
			failed = append(failed, it.ShapeID)
		}
	}
	m.tx.RollbackKeys(failed)
	m.tx.Commit()

	state := PartiallyConfirmed
	if len(failed) == len(items) {
		state = RolledBack
	}
	err := fmt.Errorf("%w: %d of %d", ErrPartialFailure, len(failed), len(items))
	e.log.Warn("batch partially failed",
		zap.String("mutation_id", m.ID),
		zap.Strings("failed", failed))
	e.emitter.Emit(e.ctx, "shapes:partial-failure", map[string]any{
		"mutationId": m.ID,
		"failed":     failed,
	})
	e.finish(m, state, items, err)
}

func (e *Engine) fail(m *Mutation, err error) {
	if m.tx != nil {
		m.tx.Rollback()
	}
	e.log.Warn("mutation rolled back",
		zap.String("mutation_id", m.ID),
		zap.String("kind", m.Kind),
		zap.Error(err))
	if !errors.Is(err, ErrCanceled) {
		e.emitter.Emit(e.ctx, "shapes:sync-failed", map[string]any{
			"mutationId": m.ID,
			"kind":       m.Kind,
			"error":      err.Error(),
		})
	}
	e.finish(m, RolledBack, nil, err)
}

func (e *Engine) finish(m *Mutation, s State, items []domain.BatchItemResult, err error) {
	e.pending.Add(-1)
	e.recorder.MutationSettled(m.Kind, s)
	e.recorder.CacheSize(e.cache.Len())
	m.settle(s, items, err)
}

func allSucceeded(items []domain.BatchItemResult) bool {
	for _, it := range items {
		if !it.Success {
			return false
		}
	}
	return true
}

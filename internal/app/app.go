package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canvas/internal/domain"
	"canvas/internal/geometry"
	"canvas/internal/hierarchy"
	"canvas/internal/layout"
	"canvas/internal/optimistic"
	"canvas/internal/route"
	"canvas/internal/service"
	"canvas/internal/transform"
	"canvas/internal/zorder"
)

var (
	ErrEmptySelection = errors.New("nothing selected")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
	ErrNoRoom         = errors.New("no free space left on page")
)

// PathRemote is the connector half of the remote store.
type PathRemote interface {
	ListPaths(ctx context.Context) ([]domain.Path, error)
	GetPath(ctx context.Context, id string) (domain.Path, error)
	CreatePath(ctx context.Context, p domain.Path) (domain.Path, error)
	UpdatePath(ctx context.Context, id string, u domain.PathUpdate) error
	DeletePath(ctx context.Context, id string) error
}

type Deps struct {
	Engine          *optimistic.Engine
	Paths           PathRemote
	Emitter         service.EventEmitter
	Logger          *zap.Logger
	RefreshInterval time.Duration
	// NewID generates shape and path ids; uuid v4 when nil.
	NewID func() string
}

// App is the canvas controller. It turns gestures into shape updates,
// records them for undo and hands them to the sync engine.
type App struct {
	engine  *optimistic.Engine
	paths   PathRemote
	emitter service.EventEmitter
	log     *zap.Logger
	newID   func() string

	state   *State
	memo    hierarchy.Memo
	watcher *refresher
}

func New(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}
	a := &App{
		engine:  deps.Engine,
		paths:   deps.Paths,
		emitter: deps.Emitter,
		log:     deps.Logger,
		newID:   deps.NewID,
		state:   NewState(),
	}
	a.watcher = newRefresher(a, deps.RefreshInterval)
	return a
}

// Start loads the canvas and begins polling the store for outside changes.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.engine.Refresh(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	a.log.Info("canvas loaded", zap.Int("shapes", a.engine.Cache().Len()))
	a.watcher.Start(ctx)
	return nil
}

// Close stops polling and waits for in-flight mutations.
func (a *App) Close() {
	a.watcher.Stop()
	a.engine.Close()
}

func (a *App) Engine() *optimistic.Engine { return a.engine }

func (a *App) State() *State { return a.state }

// ── Read side ───────────────────────────────────────────────

func (a *App) Shapes() []domain.Shape {
	return a.engine.Cache().Snapshot()
}

// Tree returns the page hierarchy of the current cache. Repairs found while
// building are dispatched as one batch update.
func (a *App) Tree() hierarchy.Tree {
	shapes, rev := a.engine.Cache().SnapshotAt()
	tree, built := a.memo.Tree(rev, func() []domain.Shape { return shapes })
	if built && len(tree.Repairs) > 0 {
		a.log.Info("repairing page assignments", zap.Int("shapes", len(tree.Repairs)))
		a.engine.UpdateShapes(tree.Repairs)
	}
	return tree
}

// RenderPosition is where the shape is drawn: page-local when it has a
// resolvable parent, global otherwise.
func (a *App) RenderPosition(id string) (geometry.Point, error) {
	shapes := a.Shapes()
	for _, s := range shapes {
		if s.ID == id {
			return geometry.RenderPosition(s, geometry.IndexPages(shapes)), nil
		}
	}
	return geometry.Point{}, fmt.Errorf("shape %s: %w", id, domain.ErrNotFound)
}

// ── Selection ───────────────────────────────────────────────

// Select sets (or extends) the selection. Unknown ids are dropped.
func (a *App) Select(ids []string, additive bool) []string {
	cache := a.engine.Cache()
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cache.Get(id); ok {
			known = append(known, id)
		}
	}
	a.state.Select(known, additive)
	return a.state.Selection()
}

func (a *App) ClearSelection() { a.state.ClearSelection() }

func (a *App) Selection() []string { return a.state.Selection() }

// targets returns ids, or the selection when ids is empty.
func (a *App) targets(ids []string) ([]string, error) {
	if len(ids) == 0 {
		ids = a.state.Selection()
	}
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return ids, nil
}

// ── Gestures ────────────────────────────────────────────────

// CreateShape adds a shape of type t centred on the view centre.
func (a *App) CreateShape(t domain.ShapeType, center geometry.Point) (domain.Shape, *optimistic.Mutation, error) {
	if !t.Valid() {
		return domain.Shape{}, nil, fmt.Errorf("shape type %q: %w", t, domain.ErrInvalidShape)
	}
	shapes := a.Shapes()
	s := layout.NewShape(a.newID(), t, center, shapes)
	a.state.Record("create "+string(t), shapes)
	m := a.engine.CreateShape(s)
	a.state.Select([]string{s.ID}, false)
	return s, m, nil
}

// CreateInPage adds a non-page shape at the first free grid spot of pageID.
func (a *App) CreateInPage(t domain.ShapeType, pageID string) (domain.Shape, *optimistic.Mutation, error) {
	if !t.Valid() || t == domain.ShapeTypePage {
		return domain.Shape{}, nil, fmt.Errorf("shape type %q in page: %w", t, domain.ErrInvalidShape)
	}
	page, ok := a.engine.Cache().Get(pageID)
	if !ok || !page.IsPage() {
		return domain.Shape{}, nil, fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	shapes := a.Shapes()
	var siblings []domain.Shape
	for _, s := range shapes {
		if s.PageID == pageID {
			siblings = append(siblings, s)
		}
	}
	tpl := layout.Defaults(t)
	pos, ok := layout.NextPosition(page, siblings, tpl.Width, tpl.Height)
	if !ok {
		return domain.Shape{}, nil, fmt.Errorf("create %s in %s: %w", t, pageID, ErrNoRoom)
	}
	center := geometry.Point{X: pos.X + tpl.Width/2, Y: pos.Y + tpl.Height/2}
	s := layout.NewShape(a.newID(), t, center, shapes)
	s.PageID = pageID

	a.state.Record("create "+string(t), shapes)
	m := a.engine.CreateShape(s)
	a.state.Select([]string{s.ID}, false)
	return s, m, nil
}

// DragStop ends a single-shape drag at release (render space of the shape).
func (a *App) DragStop(id string, release geometry.Point) (*optimistic.Mutation, error) {
	shapes := a.Shapes()
	updates, err := transform.DragStop(shapes, id, release)
	if err != nil {
		return nil, err
	}
	a.state.Record("move", shapes)
	return a.engine.UpdateShapes(updates), nil
}

// GroupDrag moves the selection by delta.
func (a *App) GroupDrag(delta geometry.Point) (*optimistic.Mutation, error) {
	sel := a.state.Selection()
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}
	shapes := a.Shapes()
	updates := transform.GroupDragStop(shapes, sel, delta)
	a.state.Record("move selection", shapes)
	return a.engine.UpdateShapes(updates), nil
}

// Resize applies a resize drag from the named handle.
func (a *App) Resize(id, handle string, delta transform.Size) (*optimistic.Mutation, error) {
	h, err := transform.ParseHandle(handle)
	if err != nil {
		return nil, err
	}
	s, ok := a.engine.Cache().Get(id)
	if !ok {
		return nil, fmt.Errorf("resize %s: %w", id, domain.ErrNotFound)
	}
	u, err := transform.Resize(s, h, delta)
	if err != nil {
		return nil, err
	}
	a.state.Record("resize", a.Shapes())
	return a.engine.UpdateShapes([]domain.ShapeUpdate{u}), nil
}

// Copy duplicates ids (or the selection) in place and selects the copies.
func (a *App) Copy(ids []string) ([]domain.Shape, *optimistic.Mutation, error) {
	ids, err := a.targets(ids)
	if err != nil {
		return nil, nil, err
	}
	shapes := a.Shapes()
	copies := transform.CopyPlan(shapes, ids, a.newID)
	if len(copies) == 0 {
		return nil, nil, fmt.Errorf("copy %v: %w", ids, domain.ErrNotFound)
	}
	a.state.Record("copy", shapes)
	m := a.engine.CopyShapes(copies)

	var top []string
	for _, c := range copies {
		if c.IsPage() || !containsPage(copies, c.PageID) {
			top = append(top, c.ID)
		}
	}
	a.state.Select(top, false)
	return copies, m, nil
}

// DragCopy is an alt-drag: copies of id stay where the original was while
// the original is dropped at release. Both land in one history entry.
func (a *App) DragCopy(id string, release geometry.Point) ([]domain.Shape, *optimistic.Mutation, *optimistic.Mutation, error) {
	shapes := a.Shapes()
	updates, err := transform.DragStop(shapes, id, release)
	if err != nil {
		return nil, nil, nil, err
	}
	copies := transform.CopyPlan(shapes, []string{id}, a.newID)
	a.state.Record("duplicate", shapes)
	copied := a.engine.CopyShapes(copies)
	moved := a.engine.UpdateShapes(updates)
	return copies, copied, moved, nil
}

// Delete removes ids (or the selection). Children of a removed page are
// orphaned, not deleted.
func (a *App) Delete(ids []string) (*optimistic.Mutation, error) {
	ids, err := a.targets(ids)
	if err != nil {
		return nil, err
	}
	a.state.Record("delete", a.Shapes())
	m := a.engine.DeleteShapes(ids)
	a.state.forget(ids)
	return m, nil
}

// Reorder moves the selection in the stacking order.
func (a *App) Reorder(direction string) (*optimistic.Mutation, error) {
	dir, err := zorder.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	sel := a.state.SelectionSet()
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}
	shapes := a.Shapes()
	updates := zorder.Diff(shapes, zorder.Reorder(shapes, sel, dir))
	if len(updates) > 0 {
		a.state.Record("reorder "+string(dir), shapes)
	}
	return a.engine.UpdateShapes(updates), nil
}

// Arrange lays ids (or the selection) out in rows from origin. Arranged
// pages carry their children.
func (a *App) Arrange(ids []string, origin geometry.Point, maxRowWidth float64) (*optimistic.Mutation, error) {
	ids, err := a.targets(ids)
	if err != nil {
		return nil, err
	}
	cache := a.engine.Cache()
	group := make([]domain.Shape, 0, len(ids))
	for _, id := range ids {
		if s, ok := cache.Get(id); ok {
			group = append(group, s)
		}
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("arrange %v: %w", ids, domain.ErrNotFound)
	}
	shapes := a.Shapes()
	targets := make(map[string]geometry.Point, len(group))
	for _, s := range layout.ArrangeGroup(group, origin, maxRowWidth) {
		targets[s.ID] = geometry.Origin(s)
	}
	a.state.Record("arrange", shapes)
	return a.engine.UpdateShapes(transform.Relocate(shapes, targets)), nil
}

func containsPage(shapes []domain.Shape, id string) bool {
	if id == "" {
		return false
	}
	for _, s := range shapes {
		if s.ID == id && s.IsPage() {
			return true
		}
	}
	return false
}

// ── Connectors ──────────────────────────────────────────────

// CreatePath connects startID to endID. Handles face each other, the
// middle leg follows the start handle and every page not hosting the
// start shape becomes an obstacle.
func (a *App) CreatePath(ctx context.Context, startID, endID string) (domain.Path, error) {
	cache := a.engine.Cache()
	start, ok := cache.Get(startID)
	if !ok {
		return domain.Path{}, fmt.Errorf("path start %s: %w", startID, domain.ErrNotFound)
	}
	end, ok := cache.Get(endID)
	if !ok {
		return domain.Path{}, fmt.Errorf("path end %s: %w", endID, domain.ErrNotFound)
	}

	startHandle := route.AutoHandle(start, center(end))
	p := domain.Path{
		ID:                   a.newID(),
		ShapeStartID:         startID,
		ShapeStartHandleType: startHandle,
		ShapeEndID:           endID,
		ShapeEndHandleType:   route.AutoHandle(end, center(start)),
		Direction:            route.DirectionFor(startHandle),
		PageExcludeList:      route.ExcludeList(route.Obstacles(start, a.Shapes())),
	}
	created, err := a.paths.CreatePath(ctx, p)
	if err != nil {
		return domain.Path{}, fmt.Errorf("create path: %w", err)
	}
	return created, nil
}

// RetargetPath points an existing path at a new end shape.
func (a *App) RetargetPath(ctx context.Context, id, endID string) error {
	end, ok := a.engine.Cache().Get(endID)
	if !ok {
		return fmt.Errorf("path end %s: %w", endID, domain.ErrNotFound)
	}
	p, err := a.paths.GetPath(ctx, id)
	if err != nil {
		return err
	}
	handle := domain.HandleLeft
	if start, ok := a.engine.Cache().Get(p.ShapeStartID); ok {
		handle = route.AutoHandle(end, center(start))
	}
	return a.paths.UpdatePath(ctx, id, domain.PathUpdate{
		ShapeEndID:         &endID,
		ShapeEndHandleType: &handle,
	})
}

// RoutePath computes the polyline of a stored path against the cache.
func (a *App) RoutePath(ctx context.Context, id string) ([]geometry.Point, error) {
	p, err := a.paths.GetPath(ctx, id)
	if err != nil {
		return nil, err
	}
	return route.Resolve(p, a.Shapes())
}

func (a *App) ListPaths(ctx context.Context) ([]domain.Path, error) {
	return a.paths.ListPaths(ctx)
}

func (a *App) DeletePath(ctx context.Context, id string) error {
	return a.paths.DeletePath(ctx, id)
}

// CanvasState bundles shapes and paths for a renderer.
func (a *App) CanvasState(ctx context.Context) (domain.CanvasState, error) {
	shapes, rev := a.engine.Cache().SnapshotAt()
	paths, err := a.paths.ListPaths(ctx)
	if err != nil {
		return domain.CanvasState{}, fmt.Errorf("canvas state: %w", err)
	}
	return domain.CanvasState{Revision: rev, Shapes: shapes, Paths: paths}, nil
}

func center(s domain.Shape) geometry.Point {
	return geometry.Point{X: s.XOffset + s.Width/2, Y: s.YOffset + s.Height/2}
}

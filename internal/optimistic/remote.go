package optimistic

import (
	"context"

	"canvas/internal/domain"
)

// Remote is the authoritative shape store the engine synchronises with.
// Implementations report a missing shape by wrapping domain.ErrNotFound.
// BatchUpdate returns a nil error for both full (200) and partial (207)
// success; callers inspect the per-item results.
type Remote interface {
	ListShapes(ctx context.Context) ([]domain.Shape, error)
	CreateShape(ctx context.Context, s domain.Shape) (domain.Shape, error)
	UpdateShape(ctx context.Context, id string, f domain.Fields) error
	BatchUpdate(ctx context.Context, updates []domain.ShapeUpdate) ([]domain.BatchItemResult, error)
	DeleteShape(ctx context.Context, id string) error
	BatchDelete(ctx context.Context, ids []string) error
	CopyShapes(ctx context.Context, shapes []domain.Shape) ([]domain.Shape, error)
}

// Recorder receives engine telemetry.
type Recorder interface {
	MutationSettled(kind string, state State)
	RetryScheduled(kind string)
	CacheSize(n int)
}

type nopRecorder struct{}

func (nopRecorder) MutationSettled(string, State) {}
func (nopRecorder) RetryScheduled(string)         {}
func (nopRecorder) CacheSize(int)                 {}

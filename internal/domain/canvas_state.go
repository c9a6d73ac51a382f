package domain

// CanvasState is the full canvas as returned to a renderer or agent.
type CanvasState struct {
	Revision uint64  `json:"revision"`
	Shapes   []Shape `json:"shapes"`
	Paths    []Path  `json:"paths"`
}

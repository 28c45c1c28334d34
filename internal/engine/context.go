package engine

import "fmt"

// ContextAPI is the Context namespace: the tool settings subsequent paint
// operations pick up.
type ContextAPI struct {
	e *Engine
}

// ParamNames declares keyword-argument names per operation.
func (a *ContextAPI) ParamNames(op string) []string {
	return map[string][]string{
		"set_foreground": {"color"},
		"set_brush_size": {"size"},
	}[op]
}

// SetForeground sets the foreground color from an [r, g, b] triple.
func (a *ContextAPI) SetForeground(color []int) error {
	if len(color) != 3 {
		return fmt.Errorf("color must be [r, g, b], got %d components", len(color))
	}
	for _, c := range color {
		if c < 0 || c > 255 {
			return fmt.Errorf("color component %d out of range [0, 255]", c)
		}
	}
	copy(a.e.foreground[:], color)
	return nil
}

// GetForeground returns the foreground color as [r, g, b].
func (a *ContextAPI) GetForeground() []int {
	return []int{a.e.foreground[0], a.e.foreground[1], a.e.foreground[2]}
}

// SetBrushSize sets the active brush diameter in pixels.
func (a *ContextAPI) SetBrushSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("brush size must be positive, got %v", size)
	}
	a.e.brushSize = size
	return nil
}

// GetBrushSize returns the active brush diameter.
func (a *ContextAPI) GetBrushSize() float64 {
	return a.e.brushSize
}

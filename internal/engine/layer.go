package engine

import "fmt"

// Layer is one layer, attached to an image or free-floating until inserted.
type Layer struct {
	id       int
	name     string
	width    int
	height   int
	offsetX  int
	offsetY  int
	opacity  float64 // 0..100
	visible  bool
	attached bool
}

// Kind implements handle.Object.
func (l *Layer) Kind() string { return "Layer" }

// ObjectID implements handle.Object.
func (l *Layer) ObjectID() int { return l.id }

func (l *Layer) String() string {
	return fmt.Sprintf("Layer(%d %q)", l.id, l.name)
}

// LayerAPI is the Layer namespace.
type LayerAPI struct {
	e *Engine
}

// ParamNames declares keyword-argument names per operation.
func (a *LayerAPI) ParamNames(op string) []string {
	return map[string][]string{
		"new":         {"image", "name", "width", "height", "opacity"},
		"set_offsets": {"layer", "offset_x", "offset_y"},
		"get_offsets": {"layer"},
		"set_name":    {"layer", "name"},
		"get_name":    {"layer"},
		"set_opacity": {"layer", "opacity"},
		"get_opacity": {"layer"},
		"set_visible": {"layer", "visible"},
		"get_visible": {"layer"},
	}[op]
}

// New creates a layer sized for img. The layer floats until inserted with
// Image.insert_layer.
func (a *LayerAPI) New(img *Image, name string, width, height int, opacity float64) (*Layer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid layer size %dx%d", width, height)
	}
	if opacity < 0 || opacity > 100 {
		return nil, fmt.Errorf("opacity %v out of range [0, 100]", opacity)
	}
	if width > img.width || height > img.height {
		return nil, fmt.Errorf("layer %dx%d exceeds image %dx%d", width, height, img.width, img.height)
	}
	a.e.nextLayerID++
	l := &Layer{
		id:      a.e.nextLayerID,
		name:    name,
		width:   width,
		height:  height,
		opacity: opacity,
		visible: true,
	}
	return l, nil
}

// SetOffsets moves the layer within its image.
func (a *LayerAPI) SetOffsets(layer *Layer, offsetX, offsetY int) {
	layer.offsetX = offsetX
	layer.offsetY = offsetY
}

// GetOffsets returns the layer offsets as [x, y].
func (a *LayerAPI) GetOffsets(layer *Layer) []int {
	return []int{layer.offsetX, layer.offsetY}
}

// SetName renames the layer.
func (a *LayerAPI) SetName(layer *Layer, name string) {
	layer.name = name
}

// GetName returns the layer name.
func (a *LayerAPI) GetName(layer *Layer) string {
	return layer.name
}

// SetOpacity sets the layer opacity in the range [0, 100].
func (a *LayerAPI) SetOpacity(layer *Layer, opacity float64) error {
	if opacity < 0 || opacity > 100 {
		return fmt.Errorf("opacity %v out of range [0, 100]", opacity)
	}
	layer.opacity = opacity
	return nil
}

// GetOpacity returns the layer opacity.
func (a *LayerAPI) GetOpacity(layer *Layer) float64 {
	return layer.opacity
}

// SetVisible toggles layer visibility.
func (a *LayerAPI) SetVisible(layer *Layer, visible bool) {
	layer.visible = visible
}

// GetVisible reports layer visibility.
func (a *LayerAPI) GetVisible(layer *Layer) bool {
	return layer.visible
}

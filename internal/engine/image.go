package engine

import "fmt"

// Image base types.
const (
	ImageRGB     = 0
	ImageGray    = 1
	ImageIndexed = 2
)

// Image is one open image. Pixel data is out of scope; the model tracks the
// structure operations mutate: geometry, base type, and the layer stack.
type Image struct {
	id     int
	width  int
	height int
	typ    int
	layers []*Layer
	dirty  bool
}

// Kind implements handle.Object.
func (i *Image) Kind() string { return "Image" }

// ObjectID implements handle.Object.
func (i *Image) ObjectID() int { return i.id }

func (i *Image) String() string {
	return fmt.Sprintf("Image(%d %dx%d)", i.id, i.width, i.height)
}

// ImageAPI is the Image namespace.
type ImageAPI struct {
	e *Engine
}

// ParamNames declares keyword-argument names per operation.
func (a *ImageAPI) ParamNames(op string) []string {
	return map[string][]string{
		"new":          {"width", "height", "image_type"},
		"get_by_id":    {"image_id"},
		"delete":       {"image"},
		"get_width":    {"image"},
		"get_height":   {"image"},
		"resize":       {"image", "width", "height"},
		"insert_layer": {"image", "layer", "position"},
		"get_layers":   {"image"},
		"flatten":      {"image"},
		"is_dirty":     {"image"},
	}[op]
}

// New creates an image of the given geometry and base type.
func (a *ImageAPI) New(width, height, imageType int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if imageType < ImageRGB || imageType > ImageIndexed {
		return nil, fmt.Errorf("invalid image type %d", imageType)
	}
	a.e.nextImageID++
	img := &Image{
		id:     a.e.nextImageID,
		width:  width,
		height: height,
		typ:    imageType,
	}
	a.e.images[img.id] = img
	a.e.order = append(a.e.order, img.id)
	return img, nil
}

// GetByID returns the image with the given engine-native id.
func (a *ImageAPI) GetByID(imageID int) (*Image, error) {
	return a.e.image(imageID)
}

// List returns all open images in creation order.
func (a *ImageAPI) List() []*Image {
	out := make([]*Image, 0, len(a.e.order))
	for _, id := range a.e.order {
		if img, ok := a.e.images[id]; ok {
			out = append(out, img)
		}
	}
	return out
}

// Delete closes an image. Its handles become stale.
func (a *ImageAPI) Delete(img *Image) error {
	if _, ok := a.e.images[img.id]; !ok {
		return fmt.Errorf("image %d already deleted", img.id)
	}
	delete(a.e.images, img.id)
	for i, id := range a.e.order {
		if id == img.id {
			a.e.order = append(a.e.order[:i], a.e.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetWidth returns the image width in pixels.
func (a *ImageAPI) GetWidth(img *Image) int { return img.width }

// GetHeight returns the image height in pixels.
func (a *ImageAPI) GetHeight(img *Image) int { return img.height }

// IsDirty reports whether the image has unsaved mutations.
func (a *ImageAPI) IsDirty(img *Image) bool { return img.dirty }

// Resize changes the image geometry. Layers keep their own sizes.
func (a *ImageAPI) Resize(img *Image, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	img.width = width
	img.height = height
	img.dirty = true
	return nil
}

// InsertLayer attaches a layer to the image stack at position. Position -1
// appends to the bottom.
func (a *ImageAPI) InsertLayer(img *Image, layer *Layer, position int) error {
	if layer.attached {
		return fmt.Errorf("layer %d is already attached to an image", layer.id)
	}
	if position < -1 || position > len(img.layers) {
		return fmt.Errorf("invalid layer position %d", position)
	}
	if position == -1 {
		position = len(img.layers)
	}
	img.layers = append(img.layers[:position], append([]*Layer{layer}, img.layers[position:]...)...)
	layer.attached = true
	img.dirty = true
	return nil
}

// GetLayers returns the image's layer stack, top first.
func (a *ImageAPI) GetLayers(img *Image) []*Layer {
	out := make([]*Layer, len(img.layers))
	copy(out, img.layers)
	return out
}

// Flatten merges the layer stack into a single background layer and returns
// it. An image with no layers cannot be flattened.
func (a *ImageAPI) Flatten(img *Image) (*Layer, error) {
	if len(img.layers) == 0 {
		return nil, fmt.Errorf("image %d has no layers to flatten", img.id)
	}
	a.e.nextLayerID++
	merged := &Layer{
		id:       a.e.nextLayerID,
		name:     "Background",
		width:    img.width,
		height:   img.height,
		opacity:  100,
		visible:  true,
		attached: true,
	}
	img.layers = []*Layer{merged}
	img.dirty = true
	return merged, nil
}

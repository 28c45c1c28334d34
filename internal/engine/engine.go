// Package engine provides the in-memory host namespace served by
// pixelbridged when it is not embedded in a real editor, and the substrate
// for tests. It models images, layers, tool context, and a procedure
// database; it does not implement any image algorithm.
//
// The engine takes no locks: all mutation is confined to the server's
// executor goroutine.
package engine

import "fmt"

// Version identifies the engine API surface.
const Version = "1.2.0"

// Engine holds all live editor state.
type Engine struct {
	nextImageID int
	nextLayerID int

	images map[int]*Image
	order  []int // image ids in creation order

	foreground [3]int
	brushSize  float64

	procedures map[string]Procedure
}

// New creates an empty engine with the built-in procedures registered.
func New() *Engine {
	e := &Engine{
		images:     make(map[int]*Image),
		foreground: [3]int{0, 0, 0},
		brushSize:  10,
		procedures: make(map[string]Procedure),
	}
	e.registerBuiltins()
	return e
}

// Root is the namespace exposed to the dispatch table. Its exported fields
// are the sub-namespaces reachable from API paths.
type Root struct {
	Image   *ImageAPI
	Layer   *LayerAPI
	Context *ContextAPI
	PDB     *PDBAPI
}

// Root returns the namespace view of the engine.
func (e *Engine) Root() *Root {
	return &Root{
		Image:   &ImageAPI{e: e},
		Layer:   &LayerAPI{e: e},
		Context: &ContextAPI{e: e},
		PDB:     &PDBAPI{e: e},
	}
}

// Version reports the engine version.
func (r *Root) Version() string {
	return Version
}

// ImageCount reports the number of open images.
func (r *Root) ImageCount() int {
	return len(r.Image.e.images)
}

func (e *Engine) image(id int) (*Image, error) {
	img, ok := e.images[id]
	if !ok {
		return nil, fmt.Errorf("no image with id %d", id)
	}
	return img, nil
}

package engine

import (
	"fmt"
	"sort"
)

// Procedure is one named entry in the procedure database. Arguments arrive as
// decoded JSON values; the procedure validates them itself.
type Procedure func(e *Engine, args []any) (any, error)

// RegisterProcedure adds a procedure under name, replacing any existing one.
// Host integrations use this to expose their own plug-in surface.
func (e *Engine) RegisterProcedure(name string, p Procedure) {
	e.procedures[name] = p
}

// PDBAPI is the PDB namespace: generic invocation of named procedures, for
// the long tail of operations that have no dedicated API path.
type PDBAPI struct {
	e *Engine
}

// ParamNames declares keyword-argument names per operation.
func (a *PDBAPI) ParamNames(op string) []string {
	return map[string][]string{
		"run_procedure": {"name", "args"},
	}[op]
}

// RunProcedure invokes the named procedure with args.
func (a *PDBAPI) RunProcedure(name string, args []any) (any, error) {
	p, ok := a.e.procedures[name]
	if !ok {
		return nil, fmt.Errorf("procedure %q not found", name)
	}
	return p(a.e, args)
}

// ListProcedures returns all registered procedure names, sorted.
func (a *PDBAPI) ListProcedures() []string {
	names := make([]string, 0, len(a.e.procedures))
	for name := range a.e.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) registerBuiltins() {
	// Filters mark the target image dirty; pixel work is the host's business.
	e.RegisterProcedure("invert", procOnImage(func(img *Image) (any, error) {
		img.dirty = true
		return nil, nil
	}))
	e.RegisterProcedure("gaussian-blur", func(e *Engine, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("gaussian-blur takes (image_id, radius), got %d args", len(args))
		}
		img, err := imageArg(e, args[0])
		if err != nil {
			return nil, err
		}
		radius, ok := args[1].(float64)
		if !ok || radius <= 0 {
			return nil, fmt.Errorf("radius must be a positive number")
		}
		img.dirty = true
		return nil, nil
	})
}

func procOnImage(fn func(img *Image) (any, error)) Procedure {
	return func(e *Engine, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected (image_id), got %d args", len(args))
		}
		img, err := imageArg(e, args[0])
		if err != nil {
			return nil, err
		}
		return fn(img)
	}
}

func imageArg(e *Engine, v any) (*Image, error) {
	id, ok := v.(float64)
	if !ok || id != float64(int(id)) {
		return nil, fmt.Errorf("image_id must be an integer, got %T", v)
	}
	return e.image(int(id))
}

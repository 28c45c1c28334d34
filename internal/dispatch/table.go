// Package dispatch maps dotted API paths onto invocable operations of a
// rooted namespace. The table is built once, by reflecting the namespace
// graph, so only deliberately exposed members are reachable from the wire;
// resolution is case-sensitive with no partial matching.
package dispatch

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/pixelbridge/pixelbridge/internal/handle"
)

// ParamNamer is implemented by namespace types that declare parameter names
// for their operations. Operations without declared names accept positional
// arguments only.
type ParamNamer interface {
	ParamNames(op string) []string
}

// Param describes one parameter of an operation.
type Param struct {
	Name string
	Type reflect.Type
}

// Operation is one invocable member of the namespace.
type Operation struct {
	path   string
	fn     reflect.Value
	params []Param
}

// Path returns the operation's full dotted path.
func (op *Operation) Path() string { return op.path }

type node struct {
	children map[string]*node
	ops      map[string]*Operation
}

// Table resolves API paths and invokes the operations they name.
type Table struct {
	root    *node
	handles *handle.Table
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// NewTable reflects root into a dispatch table. Exported struct fields become
// sub-namespaces, exported methods become operations named by the snake_case
// form of the method name. Handle-typed results and arguments go through
// handles.
func NewTable(root any, handles *handle.Table) (*Table, error) {
	if root == nil {
		return nil, fmt.Errorf("dispatch: nil root namespace")
	}
	n, err := buildNode(reflect.ValueOf(root), "")
	if err != nil {
		return nil, err
	}
	return &Table{root: n, handles: handles}, nil
}

// Resolve walks apiPath segment by segment and returns the operation it
// names. Any absent segment fails with a ResolutionError naming that segment.
func (t *Table) Resolve(apiPath string) (*Operation, error) {
	if apiPath == "" {
		return nil, &ResolutionError{APIPath: apiPath}
	}
	segs := strings.Split(apiPath, ".")
	n := t.root
	for i, seg := range segs {
		if i == len(segs)-1 {
			op, ok := n.ops[seg]
			if !ok {
				return nil, &ResolutionError{APIPath: apiPath, MissingSegment: seg}
			}
			return op, nil
		}
		child, ok := n.children[seg]
		if !ok {
			return nil, &ResolutionError{APIPath: apiPath, MissingSegment: seg}
		}
		n = child
	}
	return nil, &ResolutionError{APIPath: apiPath}
}

// Paths lists every operation path in the table, sorted. Used for startup
// logging and introspection.
func (t *Table) Paths() []string {
	var paths []string
	var walk func(n *node)
	walk = func(n *node) {
		for _, op := range n.ops {
			paths = append(paths, op.path)
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(t.root)
	sort.Strings(paths)
	return paths
}

func buildNode(v reflect.Value, prefix string) (*node, error) {
	n := &node{
		children: make(map[string]*node),
		ops:      make(map[string]*Operation),
	}

	var namer ParamNamer
	if pn, ok := v.Interface().(ParamNamer); ok {
		namer = pn
	}

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name == "ParamNames" {
			continue
		}
		opName := snakeCase(m.Name)
		opPath := joinPath(prefix, opName)
		op, err := buildOperation(opPath, opName, v.Method(i), namer)
		if err != nil {
			return nil, err
		}
		n.ops[opName] = op
	}

	elem := v
	for elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			return n, nil
		}
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return n, nil
	}
	et := elem.Type()
	for i := 0; i < et.NumField(); i++ {
		f := et.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := elem.Field(i)
		if !isNamespace(fv) {
			continue
		}
		child, err := buildNode(fv, joinPath(prefix, f.Name))
		if err != nil {
			return nil, err
		}
		n.children[f.Name] = child
	}
	return n, nil
}

func buildOperation(path, name string, fn reflect.Value, namer ParamNamer) (*Operation, error) {
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("dispatch: %s: variadic operations are not supported", path)
	}
	switch ft.NumOut() {
	case 0, 1:
	case 2:
		if ft.Out(1) != errType {
			return nil, fmt.Errorf("dispatch: %s: second result must be error", path)
		}
	default:
		return nil, fmt.Errorf("dispatch: %s: too many results", path)
	}

	params := make([]Param, ft.NumIn())
	for i := range params {
		params[i] = Param{Type: ft.In(i)}
	}
	if namer != nil {
		names := namer.ParamNames(name)
		if names != nil {
			if len(names) != len(params) {
				return nil, fmt.Errorf("dispatch: %s: declared %d parameter names for %d parameters",
					path, len(names), len(params))
			}
			for i, pn := range names {
				params[i].Name = pn
			}
		}
	}
	return &Operation{path: path, fn: fn, params: params}, nil
}

// isNamespace reports whether a field value is a traversable sub-namespace:
// a non-nil struct or pointer to struct.
func isNamespace(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer:
		return !v.IsNil() && v.Type().Elem().Kind() == reflect.Struct
	case reflect.Struct:
		return true
	default:
		return false
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// snakeCase converts a Go method name to its wire form. Runs of capitals are
// kept as one word: GetByID becomes get_by_id.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

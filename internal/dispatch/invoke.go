package dispatch

import (
	"fmt"
	"math"
	"reflect"

	"github.com/pixelbridge/pixelbridge/internal/handle"
)

// Call resolves apiPath and invokes it with args applied positionally and
// kwargs bound by declared parameter name. The returned value is already
// projected to a wire-safe form. Failures surface as ResolutionError or
// InvocationError; the engine is never exposed to a malformed call.
func (t *Table) Call(apiPath string, args []any, kwargs map[string]any) (result any, err error) {
	op, err := t.Resolve(apiPath)
	if err != nil {
		return nil, err
	}

	in, err := op.bind(args, kwargs, t.handles)
	if err != nil {
		return nil, &InvocationError{APIPath: apiPath, Err: err}
	}

	// An engine fault must become an error response, not a crash.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &InvocationError{APIPath: apiPath, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out := op.fn.Call(in)
	value, err := splitResults(out)
	if err != nil {
		return nil, &InvocationError{APIPath: apiPath, Err: err}
	}
	return t.project(value), nil
}

// bind fills the operation's parameter slots from positional args and kwargs
// and converts each value to the parameter's Go type.
func (op *Operation) bind(args []any, kwargs map[string]any, handles *handle.Table) ([]reflect.Value, error) {
	n := len(op.params)
	if len(args) > n {
		return nil, fmt.Errorf("too many arguments: got %d, want at most %d", len(args), n)
	}

	slots := make([]any, n)
	filled := make([]bool, n)
	for i, a := range args {
		slots[i] = a
		filled[i] = true
	}

	for k, v := range kwargs {
		idx := op.paramIndex(k)
		if idx < 0 {
			if !op.hasParamNames() {
				return nil, fmt.Errorf("operation does not accept keyword arguments")
			}
			return nil, fmt.Errorf("unknown keyword argument %q", k)
		}
		if filled[idx] {
			return nil, fmt.Errorf("argument %q given both positionally and by keyword", k)
		}
		slots[idx] = v
		filled[idx] = true
	}

	in := make([]reflect.Value, n)
	for i, p := range op.params {
		if !filled[i] {
			return nil, fmt.Errorf("missing argument %s", p.describe(i))
		}
		v, err := convertArg(slots[i], p.Type, handles)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.describe(i), err)
		}
		in[i] = v
	}
	return in, nil
}

func (op *Operation) paramIndex(name string) int {
	for i, p := range op.params {
		if p.Name != "" && p.Name == name {
			return i
		}
	}
	return -1
}

func (op *Operation) hasParamNames() bool {
	for _, p := range op.params {
		if p.Name != "" {
			return true
		}
	}
	return false
}

func (p Param) describe(idx int) string {
	if p.Name != "" {
		return fmt.Sprintf("%q", p.Name)
	}
	return fmt.Sprintf("at position %d", idx)
}

// convertArg converts a decoded JSON value to the target parameter type.
// Pointer-to-struct parameters are handle references and resolve through the
// handle table.
func convertArg(v any, t reflect.Type, handles *handle.Table) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return resolveHandleArg(v, t, handles)
	}

	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return reflect.ValueOf(&v).Elem(), nil
		}
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			return reflect.ValueOf(b), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := asFloat(v)
		if !ok {
			break
		}
		if f != math.Trunc(f) {
			return reflect.Value{}, fmt.Errorf("cannot use %v as %s: not an integer", v, t)
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowInt(int64(f)) {
			return reflect.Value{}, fmt.Errorf("value %v overflows %s", v, t)
		}
		rv.SetInt(int64(f))
		return rv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := asFloat(v)
		if !ok {
			break
		}
		if f != math.Trunc(f) || f < 0 {
			return reflect.Value{}, fmt.Errorf("cannot use %v as %s", v, t)
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowUint(uint64(f)) {
			return reflect.Value{}, fmt.Errorf("value %v overflows %s", v, t)
		}
		rv.SetUint(uint64(f))
		return rv, nil
	case reflect.Float32, reflect.Float64:
		if f, ok := asFloat(v); ok {
			rv := reflect.New(t).Elem()
			rv.SetFloat(f)
			return rv, nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Slice:
		list, ok := v.([]any)
		if !ok {
			break
		}
		rv := reflect.MakeSlice(t, len(list), len(list))
		for i, item := range list {
			ev, err := convertArg(item, t.Elem(), handles)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			rv.Index(i).Set(ev)
		}
		return rv, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			break
		}
		m, ok := v.(map[string]any)
		if !ok {
			break
		}
		rv := reflect.MakeMapWithSize(t, len(m))
		for k, item := range m {
			ev, err := convertArg(item, t.Elem(), handles)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			rv.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		return rv, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}

// resolveHandleArg accepts either a bare handle number or a {"handle": n}
// reference object and looks the object up in the handle table.
func resolveHandleArg(v any, t reflect.Type, handles *handle.Table) (reflect.Value, error) {
	if handles == nil {
		return reflect.Value{}, fmt.Errorf("no handle table available for %s", t)
	}

	var raw any = v
	if m, ok := v.(map[string]any); ok {
		h, ok := m["handle"]
		if !ok {
			return reflect.Value{}, fmt.Errorf("object argument missing \"handle\" field")
		}
		raw = h
	}
	f, ok := asFloat(raw)
	if !ok || f != math.Trunc(f) || f < 0 {
		return reflect.Value{}, fmt.Errorf("cannot use %T as a handle for %s", v, t)
	}

	obj, ok := handles.Get(uint64(f))
	if !ok {
		return reflect.Value{}, fmt.Errorf("stale or unknown handle %d", uint64(f))
	}
	ov := reflect.ValueOf(obj)
	if !ov.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("handle %d is a %s, want %s", uint64(f), obj.Kind(), t.Elem().Name())
	}
	return ov, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func splitResults(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			if !out[0].IsNil() {
				return nil, out[0].Interface().(error)
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

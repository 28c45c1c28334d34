package dispatch

import (
	"fmt"
	"reflect"

	"github.com/pixelbridge/pixelbridge/internal/handle"
)

// project converts an invocation result to a wire-safe value. Primitives pass
// through; slices and maps are projected elementwise; engine objects are
// registered in the handle table and replaced by their Ref. Anything else is
// stringified rather than structurally serialized.
func (t *Table) project(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	case handle.Ref:
		return x
	}

	if obj, ok := v.(handle.Object); ok {
		if t.handles != nil {
			return t.handles.Put(obj)
		}
		return map[string]any{"type": obj.Kind(), "id": obj.ObjectID()}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = t.project(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = t.project(iter.Value().Interface())
			}
			return out
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	}
	return fmt.Sprint(v)
}

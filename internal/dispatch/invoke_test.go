package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbridge/pixelbridge/internal/engine"
	"github.com/pixelbridge/pixelbridge/internal/handle"
)

func TestCallPositionalArgs(t *testing.T) {
	tbl, root := newTestTable(t)

	result, err := tbl.Call("Calc.add", []any{float64(2), float64(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, result)
	assert.Equal(t, 1, root.Calc.calls)
}

func TestCallKeywordArgs(t *testing.T) {
	tbl, _ := newTestTable(t)

	result, err := tbl.Call("Calc.add", nil, map[string]any{"a": float64(4), "b": float64(6)})
	require.NoError(t, err)
	assert.Equal(t, 10, result)
}

func TestCallMixedArgs(t *testing.T) {
	tbl, _ := newTestTable(t)

	result, err := tbl.Call("Calc.add", []any{float64(1)}, map[string]any{"b": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestCallArgumentErrors(t *testing.T) {
	tbl, _ := newTestTable(t)

	tests := []struct {
		name    string
		args    []any
		kwargs  map[string]any
		message string
	}{
		{"too many", []any{1.0, 2.0, 3.0}, nil, "too many arguments"},
		{"missing", []any{1.0}, nil, "missing argument"},
		{"unknown keyword", []any{1.0, 2.0}, map[string]any{"c": 3.0}, "unknown keyword"},
		{"duplicate", []any{1.0, 2.0}, map[string]any{"a": 3.0}, "positionally and by keyword"},
		{"type mismatch", []any{"x", 2.0}, nil, "cannot use"},
		{"non-integer", []any{1.5, 2.0}, nil, "not an integer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tbl.Call("Calc.add", tc.args, tc.kwargs)
			var ie *InvocationError
			require.ErrorAs(t, err, &ie)
			assert.Contains(t, ie.Error(), tc.message)
			assert.Equal(t, "Calc.add", ie.APIPath)
		})
	}
}

func TestCallKeywordsRejectedWithoutDeclaredNames(t *testing.T) {
	tbl, _ := newTestTable(t)

	_, err := tbl.Call("Text.repeat", []any{"ab"}, map[string]any{"n": float64(2)})
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "does not accept keyword arguments")
}

func TestCallSliceArgument(t *testing.T) {
	tbl, _ := newTestTable(t)

	result, err := tbl.Call("Calc.sum", []any{[]any{1.0, 2.0, 3.5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6.5, result)
}

func TestCallOperationError(t *testing.T) {
	tbl, _ := newTestTable(t)

	_, err := tbl.Call("Calc.div", []any{1.0, 0.0}, nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "division by zero")
}

func TestCallResolutionErrorPassthrough(t *testing.T) {
	tbl, _ := newTestTable(t)

	_, err := tbl.Call("Calc.bogus", nil, nil)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "bogus", re.MissingSegment)
}

// The engine namespace exercises handle projection and handle arguments
// end to end.
func newEngineTable(t *testing.T) (*Table, *handle.Table) {
	t.Helper()
	handles := handle.NewTable(0)
	t.Cleanup(handles.Close)
	tbl, err := NewTable(engine.New().Root(), handles)
	require.NoError(t, err)
	return tbl, handles
}

func TestCallProjectsObjectToHandle(t *testing.T) {
	tbl, handles := newEngineTable(t)

	result, err := tbl.Call("Image.new", []any{400.0, 300.0, 0.0}, nil)
	require.NoError(t, err)

	ref, ok := result.(handle.Ref)
	require.True(t, ok, "expected handle.Ref, got %T", result)
	assert.Equal(t, "Image", ref.Type)
	assert.Equal(t, 1, ref.ID)

	obj, ok := handles.Get(ref.Handle)
	require.True(t, ok)
	assert.Equal(t, "Image", obj.Kind())
}

func TestCallHandleArgument(t *testing.T) {
	tbl, _ := newEngineTable(t)

	result, err := tbl.Call("Image.new", []any{640.0, 480.0, 0.0}, nil)
	require.NoError(t, err)
	ref := result.(handle.Ref)

	// Bare handle number.
	width, err := tbl.Call("Image.get_width", []any{float64(ref.Handle)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 640, width)

	// Reference object form, as clients echo results back.
	height, err := tbl.Call("Image.get_height", nil, map[string]any{
		"image": map[string]any{"handle": float64(ref.Handle), "type": "Image"},
	})
	require.NoError(t, err)
	assert.Equal(t, 480, height)
}

func TestCallStaleHandle(t *testing.T) {
	tbl, _ := newEngineTable(t)

	_, err := tbl.Call("Image.get_width", []any{float64(999)}, nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "stale or unknown handle")
}

func TestCallHandleKindMismatch(t *testing.T) {
	tbl, _ := newEngineTable(t)

	result, err := tbl.Call("Image.new", []any{100.0, 100.0, 0.0}, nil)
	require.NoError(t, err)
	ref := result.(handle.Ref)

	_, err = tbl.Call("Layer.get_name", []any{float64(ref.Handle)}, nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "want Layer")
}

func TestCallProjectsSliceOfObjects(t *testing.T) {
	tbl, _ := newEngineTable(t)

	imgRes, err := tbl.Call("Image.new", []any{300.0, 200.0, 0.0}, nil)
	require.NoError(t, err)
	img := imgRes.(handle.Ref)

	layerRes, err := tbl.Call("Layer.new",
		[]any{float64(img.Handle), "backdrop", 300.0, 200.0, 100.0}, nil)
	require.NoError(t, err)
	layer := layerRes.(handle.Ref)
	assert.Equal(t, "Layer", layer.Type)

	_, err = tbl.Call("Image.insert_layer",
		[]any{float64(img.Handle), float64(layer.Handle), -1.0}, nil)
	require.NoError(t, err)

	layersRes, err := tbl.Call("Image.get_layers", []any{float64(img.Handle)}, nil)
	require.NoError(t, err)
	layers, ok := layersRes.([]any)
	require.True(t, ok, "expected []any, got %T", layersRes)
	require.Len(t, layers, 1)
	assert.IsType(t, handle.Ref{}, layers[0])
}

func TestCallPrimitiveResults(t *testing.T) {
	tbl, _ := newEngineTable(t)

	version, err := tbl.Call("version", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.Version, version)

	count, err := tbl.Call("image_count", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	fg, err := tbl.Call("Context.get_foreground", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{0, 0, 0}, fg)
}

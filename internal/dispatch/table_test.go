package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbridge/pixelbridge/internal/handle"
)

// calcAPI is a minimal namespace for table tests.
type calcAPI struct {
	calls int
}

func (c *calcAPI) Add(a, b int) int {
	c.calls++
	return a + b
}

func (c *calcAPI) Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func (c *calcAPI) Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func (c *calcAPI) ParamNames(op string) []string {
	return map[string][]string{
		"add": {"a", "b"},
		"div": {"a", "b"},
		"sum": {"values"},
	}[op]
}

type textAPI struct{}

func (textAPI) Repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

type testRoot struct {
	Calc *calcAPI
	Text textAPI
}

func (r *testRoot) Ping() string { return "pong" }

func newTestTable(t *testing.T) (*Table, *testRoot) {
	t.Helper()
	root := &testRoot{Calc: &calcAPI{}}
	tbl, err := NewTable(root, nil)
	require.NoError(t, err)
	return tbl, root
}

func TestResolveOperation(t *testing.T) {
	tbl, _ := newTestTable(t)

	op, err := tbl.Resolve("Calc.add")
	require.NoError(t, err)
	assert.Equal(t, "Calc.add", op.Path())

	op, err = tbl.Resolve("ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", op.Path())
}

func TestResolveMissingSegmentNamed(t *testing.T) {
	tbl, _ := newTestTable(t)

	tests := []struct {
		path    string
		segment string
	}{
		{"Calc.bogus", "bogus"},
		{"Nope.add", "Nope"},
		{"Calc.add.extra", "add"},
		{"calc.add", "calc"}, // case-sensitive, no fuzzy matching
		{"Calc.Add", "Add"},  // wire names are snake_case
	}
	for _, tc := range tests {
		_, err := tbl.Resolve(tc.path)
		var re *ResolutionError
		require.ErrorAs(t, err, &re, "path %s", tc.path)
		assert.Equal(t, tc.path, re.APIPath)
		assert.Equal(t, tc.segment, re.MissingSegment)
		assert.Contains(t, re.Error(), tc.segment)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	tbl, _ := newTestTable(t)
	_, err := tbl.Resolve("")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Error(), "empty")
}

func TestPathsListsAllOperations(t *testing.T) {
	tbl, _ := newTestTable(t)
	paths := tbl.Paths()
	assert.Contains(t, paths, "Calc.add")
	assert.Contains(t, paths, "Calc.div")
	assert.Contains(t, paths, "Text.repeat")
	assert.Contains(t, paths, "ping")
}

func TestNewTableRejectsBadSignatures(t *testing.T) {
	_, err := NewTable(&badVariadic{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variadic")

	_, err = NewTable(&badResults{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result")
}

type badVariadic struct{}

func (badVariadic) Join(parts ...string) string { return fmt.Sprint(parts) }

type badResults struct{}

func (badResults) Three() (int, int, int) { return 0, 0, 0 }

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"New":           "new",
		"GetByID":       "get_by_id",
		"SetOffsets":    "set_offsets",
		"RunProcedure":  "run_procedure",
		"ImageCount":    "image_count",
		"GetWidth":      "get_width",
		"IsDirty":       "is_dirty",
		"ListProcedures": "list_procedures",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), "snakeCase(%s)", in)
	}
}

func TestNewTableNilRoot(t *testing.T) {
	_, err := NewTable(nil, handle.NewTable(0))
	require.Error(t, err)
}

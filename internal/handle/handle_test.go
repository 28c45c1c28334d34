package handle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	kind string
	id   int
}

func (o *fakeObject) Kind() string  { return o.kind }
func (o *fakeObject) ObjectID() int { return o.id }

func TestPutGet(t *testing.T) {
	tbl := NewTable(0)
	defer tbl.Close()

	obj := &fakeObject{kind: "Image", id: 7}
	ref := tbl.Put(obj)

	assert.Equal(t, "Image", ref.Type)
	assert.Equal(t, 7, ref.ID)
	assert.NotZero(t, ref.Handle)

	got, ok := tbl.Get(ref.Handle)
	require.True(t, ok)
	assert.Same(t, obj, got)
}

func TestHandlesAreDistinct(t *testing.T) {
	tbl := NewTable(0)
	defer tbl.Close()

	a := tbl.Put(&fakeObject{kind: "Image", id: 1})
	b := tbl.Put(&fakeObject{kind: "Image", id: 1})
	assert.NotEqual(t, a.Handle, b.Handle)
	assert.Equal(t, 2, tbl.Len())
}

func TestGetUnknownHandle(t *testing.T) {
	tbl := NewTable(0)
	defer tbl.Close()

	_, ok := tbl.Get(42)
	assert.False(t, ok)
}

func TestHandleExpiry(t *testing.T) {
	tbl := NewTable(20 * time.Millisecond)
	defer tbl.Close()

	ref := tbl.Put(&fakeObject{kind: "Layer", id: 3})

	_, ok := tbl.Get(ref.Handle)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = tbl.Get(ref.Handle)
	assert.False(t, ok)
}

// Package handle maintains the table of live engine objects exposed to
// clients. Engine objects are not wire-transmissible, so every non-primitive
// result is stored here and crosses the socket as an opaque numeric handle;
// clients pass handles back as arguments to reach the same object again.
package handle

import (
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is the handle lifetime applied when no TTL is configured.
// Hits refresh the clock, so only abandoned handles expire.
const DefaultTTL = 1 * time.Hour

// Object is implemented by engine objects that may cross the wire as handles.
type Object interface {
	// Kind is the object's type tag, e.g. "Image" or "Layer".
	Kind() string
	// ObjectID is the engine's own identifier for the object.
	ObjectID() int
}

// Ref is the wire projection of an Object.
type Ref struct {
	// Handle is the opaque table key. Valid for the lifetime of the entry.
	Handle uint64 `json:"handle"`
	// Type is the object's kind tag.
	Type string `json:"type"`
	// ID is the engine-native identifier, usable with get_by_id style ops.
	ID int `json:"id"`
}

// Table maps opaque handles to live objects with TTL-based expiry.
type Table struct {
	next  atomic.Uint64
	cache *ttlcache.Cache[uint64, Object]
}

// NewTable creates a handle table whose entries expire ttl after last use.
// A ttl of zero applies DefaultTTL.
func NewTable(ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := ttlcache.New[uint64, Object](
		ttlcache.WithTTL[uint64, Object](ttl),
	)
	go c.Start()
	return &Table{cache: c}
}

// Put stores obj and returns its wire reference.
func (t *Table) Put(obj Object) Ref {
	h := t.next.Add(1)
	t.cache.Set(h, obj, ttlcache.DefaultTTL)
	return Ref{Handle: h, Type: obj.Kind(), ID: obj.ObjectID()}
}

// Get returns the object for h, refreshing its TTL.
func (t *Table) Get(h uint64) (Object, bool) {
	item := t.cache.Get(h)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Len reports the number of live handles.
func (t *Table) Len() int {
	return t.cache.Len()
}

// Close stops the expiration loop.
func (t *Table) Close() {
	t.cache.Stop()
}

// Package mem implements an in-memory snapshot that can be stacked on top of
// any readable store.
//
// A layer keeps its own writes and deletions and falls back to the parent for
// the keys it does not know about. It is used to stage the writes of a
// transaction: they are applied to the durable store only when the execution
// succeeds, otherwise the layer is simply dropped.
//
// Documentation Last Review: 14.10.2026
//
package mem

import (
	"sort"

	"go.dedis.ch/coffeetrace/core/store"
	"golang.org/x/xerrors"
)

// Layer is an in-memory store snapshot.
//
// - implements store.Snapshot
type Layer struct {
	parent store.Readable
	store  map[string][]byte

	// deleted tracks the keys deleted in this layer so that the parent values
	// are hidden.
	deleted map[string]struct{}
}

// NewSnapshot returns an empty standalone snapshot.
func NewSnapshot() *Layer {
	return NewLayer(nil)
}

// NewLayer returns a new layer on top of the parent. The parent is never
// modified by the layer. A nil parent is an empty store.
func NewLayer(parent store.Readable) *Layer {
	return &Layer{
		parent:  parent,
		store:   make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Get implements store.Readable. It returns the value written in the layer, or
// the one of the parent if the key has not been touched.
func (l *Layer) Get(key []byte) ([]byte, error) {
	str := string(key)

	val, found := l.store[str]
	if found {
		return val, nil
	}

	_, deleted := l.deleted[str]
	if deleted || l.parent == nil {
		return nil, nil
	}

	val, err := l.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return val, nil
}

// Set implements store.Writable.
func (l *Layer) Set(key, value []byte) error {
	str := string(key)

	l.store[str] = value
	delete(l.deleted, str)

	return nil
}

// Delete implements store.Writable.
func (l *Layer) Delete(key []byte) error {
	str := string(key)

	delete(l.store, str)
	l.deleted[str] = struct{}{}

	return nil
}

// Len returns the number of keys written or deleted in the layer.
func (l *Layer) Len() int {
	return len(l.store) + len(l.deleted)
}

// Apply writes the changes of the layer to the store. Keys are applied in
// lexicographical order so that the result does not depend on the map order.
func (l *Layer) Apply(w store.Writable) error {
	keys := make([]string, 0, len(l.store))
	for key := range l.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := w.Set([]byte(key), l.store[key])
		if err != nil {
			return xerrors.Errorf("failed to set key '%x': %v", key, err)
		}
	}

	keys = keys[:0]
	for key := range l.deleted {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := w.Delete([]byte(key))
		if err != nil {
			return xerrors.Errorf("failed to delete key '%x': %v", key, err)
		}
	}

	return nil
}

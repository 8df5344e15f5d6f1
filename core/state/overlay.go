package state

import (
	"errors"
	"sort"

	"hashmelody/storage"
)

// Overlay journals writes on top of a database so a transition can be
// committed as one batch or dropped entirely.
type Overlay struct {
	base   storage.Database
	writes map[string][]byte
}

// NewOverlay wraps base. Reads fall through to base until a key is written.
func NewOverlay(base storage.Database) *Overlay {
	return &Overlay{base: base, writes: make(map[string][]byte)}
}

// Get returns the pending value for key or the committed one. Missing keys
// yield a nil slice and no error.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if value, ok := o.writes[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	value, err := o.base.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Put stages value under key.
func (o *Overlay) Put(key, value []byte) error {
	o.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

// Len reports the number of staged keys.
func (o *Overlay) Len() int { return len(o.writes) }

// Commit writes every staged key to the base database in a single batch and
// clears the journal.
func (o *Overlay) Commit() error {
	if len(o.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(o.writes))
	for key := range o.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, key := range keys {
		batch.Put([]byte(key), o.writes[key])
	}
	if err := o.base.Write(batch); err != nil {
		return err
	}
	o.writes = make(map[string][]byte)
	return nil
}

// Discard drops every staged write.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
}

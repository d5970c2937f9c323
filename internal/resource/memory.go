package resource

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process Store used by unit tests and by the standalone
// projects service when no MongoDB is configured. Documents are kept as BSON
// maps so filters, sorts and projections behave like they do in MongoDB.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	docs   []bson.M // insertion order
	unique []string
}

// NewMemoryStore creates an empty store. uniqueFields behave like sparse
// unique indexes: documents missing the field never conflict.
func NewMemoryStore[T any](uniqueFields ...string) *MemoryStore[T] {
	return &MemoryStore[T]{unique: uniqueFields}
}

func (m *MemoryStore[T]) Insert(_ context.Context, doc *T) error {
	d, err := toDoc(doc)
	if err != nil {
		return err
	}
	prepareInsert(d)
	// normalise the freshly set values through the codec
	if d, err = toDoc(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(d, -1) {
		return ErrDuplicateKey
	}
	for _, existing := range m.docs {
		if valuesEqual(existing["_id"], d["_id"]) {
			return ErrDuplicateKey
		}
	}
	m.docs = append(m.docs, d)

	stored, err := fromDoc[T](d)
	if err != nil {
		return err
	}
	*doc = *stored
	return nil
}

func (m *MemoryStore[T]) FindOne(_ context.Context, filter bson.M) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return fromDoc[T](d)
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore[T]) Find(_ context.Context, q Query) ([]T, error) {
	m.mu.RLock()
	selected, err := m.selectLocked(q.Filter)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sortDocs(selected, q.Sort)

	if q.Skip > 0 {
		if q.Skip >= int64(len(selected)) {
			selected = nil
		} else {
			selected = selected[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(selected)) > q.Limit {
		selected = selected[:q.Limit]
	}

	out := make([]T, 0, len(selected))
	for _, d := range selected {
		p, err := project(d, q.Projection)
		if err != nil {
			return nil, err
		}
		v, err := fromDoc[T](p)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (m *MemoryStore[T]) Count(_ context.Context, filter bson.M) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	selected, err := m.selectLocked(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(selected)), nil
}

func (m *MemoryStore[T]) UpdateOne(_ context.Context, filter, set bson.M) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		next, err := m.applyLocked(i, set)
		if err != nil {
			return nil, err
		}
		return fromDoc[T](next)
	}
	return nil, ErrNotFound
}

func (m *MemoryStore[T]) UpdateMany(_ context.Context, filter, set bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, d := range m.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		if _, err := m.applyLocked(i, set); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// selectLocked returns copies of the matching documents.
func (m *MemoryStore[T]) selectLocked(filter bson.M) ([]bson.M, error) {
	var out []bson.M
	for _, d := range m.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// applyLocked writes set onto the document at index i. Stored documents are
// replaced, never mutated, so slices handed out by selectLocked stay valid.
func (m *MemoryStore[T]) applyLocked(i int, set bson.M) (bson.M, error) {
	next := make(bson.M, len(m.docs[i]))
	for k, v := range m.docs[i] {
		next[k] = v
	}
	for k, v := range withUpdatedAt(set) {
		next[k] = v
	}
	next, err := toDoc(next)
	if err != nil {
		return nil, err
	}
	if m.conflicts(next, i) {
		return nil, ErrDuplicateKey
	}
	m.docs[i] = next
	return next, nil
}

func (m *MemoryStore[T]) conflicts(d bson.M, skip int) bool {
	for _, field := range m.unique {
		v, ok := d[field]
		if !ok || v == nil {
			continue
		}
		for i, other := range m.docs {
			if i == skip {
				continue
			}
			if ov, ok := other[field]; ok && valuesEqual(ov, v) {
				return true
			}
		}
	}
	return false
}

package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process. It backs tests and local runs
// without a Firebase project.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	watchers    map[string]map[*memoryWatcher]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		watchers:    make(map[string]map[*memoryWatcher]struct{}),
	}
}

func (m *MemoryStore) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query(collection, filters), nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id)
}

func (m *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	m.notify(collection)
	return id, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	m.notify(collection)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.merge(collection, id, fields); err != nil {
		return err
	}
	m.notify(collection)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return nil
	}
	delete(m.collections[collection], id)
	m.notify(collection)
	return nil
}

// RunTransaction holds the store lock for the whole of fn, so transactions are
// serialized. Writes are staged and applied only if fn succeeds.
func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	touched := make(map[string]struct{})
	for _, w := range tx.writes {
		if w.create {
			m.put(w.collection, w.id, w.data)
		} else if err := m.merge(w.collection, w.id, w.data); err != nil {
			return err
		}
		touched[w.collection] = struct{}{}
	}
	for collection := range touched {
		m.notify(collection)
	}
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context, collection string, filters ...Filter) (Watcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &memoryWatcher{
		store:      m,
		collection: collection,
		filters:    filters,
		ctx:        ctx,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchers[collection] == nil {
		m.watchers[collection] = make(map[*memoryWatcher]struct{})
	}
	m.watchers[collection][w] = struct{}{}
	w.pending = m.query(collection, filters)
	w.hasPending = true
	w.signal <- struct{}{}
	return w, nil
}

// Len reports how many documents a collection holds.
func (m *MemoryStore) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

// Watchers reports how many live watches are open on collection.
func (m *MemoryStore) Watchers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[collection])
}

func (m *MemoryStore) get(collection, id string) (Document, error) {
	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Data: copyData(data)}, nil
}

func (m *MemoryStore) put(collection, id string, data map[string]any) {
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = copyData(data)
}

func (m *MemoryStore) merge(collection, id string, fields map[string]any) error {
	data, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	for k, v := range fields {
		data[k] = v
	}
	return nil
}

// query returns matching documents ordered by ID, like Firestore's default order.
func (m *MemoryStore) query(collection string, filters []Filter) []Document {
	docs := make([]Document, 0, len(m.collections[collection]))
	for id, data := range m.collections[collection] {
		if matches(data, filters) {
			docs = append(docs, Document{ID: id, Data: copyData(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// notify must be called with m.mu held.
func (m *MemoryStore) notify(collection string) {
	for w := range m.watchers[collection] {
		w.pending = m.query(collection, w.filters)
		w.hasPending = true
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func (m *MemoryStore) removeWatcher(w *memoryWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers[w.collection], w)
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

type memoryWrite struct {
	collection string
	id         string
	data       map[string]any
	create     bool
}

type memoryTx struct {
	store  *MemoryStore
	writes []memoryWrite
}

func (tx *memoryTx) Get(collection, id string) (Document, error) {
	if len(tx.writes) > 0 {
		return Document{}, fmt.Errorf("store: read after write in transaction")
	}
	return tx.store.get(collection, id)
}

func (tx *memoryTx) Create(collection, id string, data map[string]any) error {
	if _, ok := tx.store.collections[collection][id]; ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	tx.writes = append(tx.writes, memoryWrite{collection: collection, id: id, data: copyData(data), create: true})
	return nil
}

func (tx *memoryTx) Update(collection, id string, fields map[string]any) error {
	if _, ok := tx.store.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	tx.writes = append(tx.writes, memoryWrite{collection: collection, id: id, data: copyData(fields)})
	return nil
}

// memoryWatcher keeps only the latest result set. A slow reader skips
// intermediate states but never sees them out of order.
type memoryWatcher struct {
	store      *MemoryStore
	collection string
	filters    []Filter
	ctx        context.Context

	// guarded by store.mu
	pending    []Document
	hasPending bool

	signal   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (w *memoryWatcher) Next() ([]Document, error) {
	for {
		select {
		case <-w.done:
			return nil, ErrWatchStopped
		default:
		}
		select {
		case <-w.done:
			return nil, ErrWatchStopped
		case <-w.ctx.Done():
			return nil, w.ctx.Err()
		case <-w.signal:
		}

		w.store.mu.Lock()
		docs, ok := w.pending, w.hasPending
		w.pending, w.hasPending = nil, false
		w.store.mu.Unlock()
		if ok {
			return docs, nil
		}
	}
}

func (w *memoryWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.store.removeWatcher(w)
	})
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Add(ctx, "users", map[string]any{"uid": "u1", "email": "a@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Data["uid"])

	require.NoError(t, s.Update(ctx, "users", id, map[string]any{"email": "b@example.com"}))
	doc, err = s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", doc.Data["email"])
	assert.Equal(t, "u1", doc.Data["uid"], "update must merge, not replace")

	require.NoError(t, s.Set(ctx, "users", id, map[string]any{"uid": "u2"}))
	doc, err = s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.NotContains(t, doc.Data, "email", "set replaces the whole document")
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "users", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	err := NewMemoryStore().Update(context.Background(), "users", "nope", map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "Cartu1", "b", map[string]any{"uid": "u1"}))
	require.NoError(t, s.Set(ctx, "Cartu1", "a", map[string]any{"uid": "u1"}))
	require.NoError(t, s.Set(ctx, "Cartu1", "c", map[string]any{"uid": "someone-else"}))

	docs, err := s.List(ctx, "Cartu1", Where("uid", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestMemoryStoreListEmptyCollection(t *testing.T) {
	docs, err := NewMemoryStore().List(context.Background(), "products-NONE")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "c", "1", map[string]any{"qty": 1}))

	doc, _ := s.Get(ctx, "c", "1")
	doc.Data["qty"] = 99

	again, _ := s.Get(ctx, "c", "1")
	assert.Equal(t, 1, again.Data["qty"])
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.List(ctx, "c")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Add(ctx, "c", map[string]any{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len("c"))
}

func TestMemoryTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.RunTransaction(ctx, func(tx Tx) error {
		_, err := tx.Get("c", "1")
		require.ErrorIs(t, err, ErrNotFound)
		return tx.Create("c", "1", map[string]any{"qty": 1})
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "c", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Data["qty"])
}

func TestMemoryTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.RunTransaction(ctx, func(tx Tx) error {
		require.NoError(t, tx.Create("c", "1", map[string]any{"qty": 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len("c"))
}

func TestMemoryTransactionRules(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "c", "1", map[string]any{"qty": 1}))

	err := s.RunTransaction(ctx, func(tx Tx) error {
		assert.ErrorIs(t, tx.Create("c", "1", nil), ErrAlreadyExists)
		assert.ErrorIs(t, tx.Update("c", "2", nil), ErrNotFound)
		require.NoError(t, tx.Update("c", "1", map[string]any{"qty": 2}))
		_, err := tx.Get("c", "1")
		assert.Error(t, err, "reads after writes are rejected")
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryTransactionsSerializeIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "c", "1", map[string]any{"qty": 0}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RunTransaction(ctx, func(tx Tx) error {
				doc, err := tx.Get("c", "1")
				if err != nil {
					return err
				}
				return tx.Update("c", "1", map[string]any{"qty": doc.Data["qty"].(int) + 1})
			})
		}()
	}
	wg.Wait()

	doc, _ := s.Get(ctx, "c", "1")
	assert.Equal(t, 50, doc.Data["qty"])
}

func nextWithin(t *testing.T, w Watcher) ([]Document, error) {
	t.Helper()
	type result struct {
		docs []Document
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		docs, err := w.Next()
		ch <- result{docs, err}
	}()
	select {
	case r := <-ch:
		return r.docs, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch result")
		return nil, nil
	}
}

func TestMemoryWatchDeliversInitialAndChanges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "Cartu1", "p1", map[string]any{"uid": "u1", "qty": 1}))

	w, err := s.Watch(ctx, "Cartu1", Where("uid", "u1"))
	require.NoError(t, err)
	defer w.Stop()

	docs, err := nextWithin(t, w)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, s.Update(ctx, "Cartu1", "p1", map[string]any{"qty": 2}))
	docs, err = nextWithin(t, w)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Data["qty"])
}

func TestMemoryWatchCoalescesToLatest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	w, err := s.Watch(ctx, "c")
	require.NoError(t, err)
	defer w.Stop()

	_, err = nextWithin(t, w)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "c", "1", map[string]any{"n": 1}))
	require.NoError(t, s.Set(ctx, "c", "2", map[string]any{"n": 2}))

	docs, err := nextWithin(t, w)
	require.NoError(t, err)
	assert.Len(t, docs, 2, "a slow reader sees the latest state")
}

func TestMemoryWatchStop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	w, err := s.Watch(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Watchers("c"))

	w.Stop()
	w.Stop()
	assert.Equal(t, 0, s.Watchers("c"))

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrWatchStopped)
}

func TestMemoryWatchContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	w, err := s.Watch(ctx, "c")
	require.NoError(t, err)
	defer w.Stop()
	_, err = nextWithin(t, w)
	require.NoError(t, err)

	cancel()
	_, err = nextWithin(t, w)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "users", "u1", map[string]any{"uid": "u1"}))
	w, err := m.Watch(ctx, "users")
	require.NoError(t, err)
	defer w.Stop()
	_, err = nextWithin(t, w)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "users", "u1"))
	assert.Equal(t, 0, m.Len("users"))
	docs, err := nextWithin(t, w)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.NoError(t, m.Delete(ctx, "users", "u1"), "deleting a missing document succeeds")
}

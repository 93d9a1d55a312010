package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	Client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{Client: client}
}

var errNilClient = errors.New("store: firestore client is nil")

func (s *FirestoreStore) ready() error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	return nil
}

func (s *FirestoreStore) query(collection string, filters []Filter) firestore.Query {
	q := s.Client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	return q
}

func (s *FirestoreStore) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	snaps, err := s.query(collection, filters).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return toDocuments(snaps), nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := s.ready(); err != nil {
		return Document{}, err
	}
	snap, err := s.Client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, mapError(collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	ref, _, err := s.Client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.Client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.Client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields)); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

// Delete succeeds when the document is already gone.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.Client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

// RunTransaction uses Firestore transactions; fn may run more than once when
// the documents it read change underneath it.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&firestoreTx{client: s.Client, tx: tx})
	})
}

func (s *FirestoreStore) Watch(ctx context.Context, collection string, filters ...Filter) (Watcher, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return &firestoreWatcher{it: s.query(collection, filters).Snapshots(ctx)}, nil
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return Document{}, mapError(collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (t *firestoreTx) Create(collection, id string, data map[string]any) error {
	return t.tx.Create(t.client.Collection(collection).Doc(id), data)
}

func (t *firestoreTx) Update(collection, id string, fields map[string]any) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), toUpdates(fields))
}

type firestoreWatcher struct {
	it *firestore.QuerySnapshotIterator
}

func (w *firestoreWatcher) Next() ([]Document, error) {
	qs, err := w.it.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, ErrWatchStopped
		}
		if status.Code(err) == codes.Canceled {
			return nil, context.Canceled
		}
		return nil, err
	}
	snaps, err := qs.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return toDocuments(snaps), nil
}

func (w *firestoreWatcher) Stop() {
	w.it.Stop()
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}

func toUpdates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	return updates
}

func mapError(collection, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return err
}

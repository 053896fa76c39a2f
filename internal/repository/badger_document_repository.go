package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const badgerKeyPrefix = "doc/"

type badgerEnvelope struct {
	ID        string    `json:"id"`
	Data      Document  `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type badgerDocumentRepository struct {
	db *badger.DB
}

// NewBadgerDocumentRepository stores documents in an embedded BadgerDB under
// doc/<collection>/<id>. Ids are UUIDv7, so key order is insertion order.
func NewBadgerDocumentRepository(db *badger.DB) DocumentRepository {
	return &badgerDocumentRepository{db: db}
}

func collectionPrefix(collection string) []byte {
	return []byte(badgerKeyPrefix + collection + "/")
}

func documentKey(collection, id string) []byte {
	return []byte(badgerKeyPrefix + collection + "/" + id)
}

func (r *badgerDocumentRepository) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var env badgerEnvelope
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(collection, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrDocumentNotFound
		}
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		return nil, err
	}
	snap := env.snapshot()
	return &snap, nil
}

func (r *badgerDocumentRepository) QueryEquals(ctx context.Context, collection, field string, value any, limit int) ([]Snapshot, error) {
	return r.scan(ctx, collection, func(env *badgerEnvelope) (bool, bool) {
		got, ok := lookup(env.Data, field)
		match := ok && valuesEqual(got, value)
		return match, limit > 0
	}, limit)
}

func (r *badgerDocumentRepository) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return r.scan(ctx, collection, func(*badgerEnvelope) (bool, bool) { return true, false }, 0)
}

// scan walks a collection in key order. keep decides whether a document is
// returned; once limit documents are kept the walk stops.
func (r *badgerDocumentRepository) scan(
	ctx context.Context,
	collection string,
	keep func(env *badgerEnvelope) (match bool, limited bool),
	limit int,
) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snaps []Snapshot
	prefix := collectionPrefix(collection)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var env badgerEnvelope
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return fmt.Errorf("decode document %s: %w", it.Item().Key(), err)
			}

			match, limited := keep(&env)
			if !match {
				continue
			}
			snaps = append(snaps, env.snapshot())
			if limited && len(snaps) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (r *badgerDocumentRepository) Insert(ctx context.Context, collection string, data Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}

	now := time.Now()
	env := badgerEnvelope{ID: id.String(), Data: data, CreatedAt: now, UpdatedAt: now}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(collection, env.ID), raw)
	})
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return env.ID, nil
}

func (r *badgerDocumentRepository) Set(ctx context.Context, collection, id string, data Document) error {
	return r.write(ctx, collection, id, data, false)
}

func (r *badgerDocumentRepository) Update(ctx context.Context, collection, id string, data Document) error {
	return r.write(ctx, collection, id, data, true)
}

func (r *badgerDocumentRepository) write(ctx context.Context, collection, id string, data Document, mustExist bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := documentKey(collection, id)
	return r.db.Update(func(txn *badger.Txn) error {
		now := time.Now()
		env := badgerEnvelope{ID: id, Data: data, CreatedAt: now, UpdatedAt: now}

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if mustExist {
				return ErrDocumentNotFound
			}
		case err != nil:
			return fmt.Errorf("get document: %w", err)
		default:
			var existing badgerEnvelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}
			env.CreatedAt = existing.CreatedAt
		}

		raw, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		return txn.Set(key, raw)
	})
}

func (r *badgerDocumentRepository) Modify(ctx context.Context, collection, id string, fn ModifyFunc) error {
	key := documentKey(collection, id)
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.db.Update(func(txn *badger.Txn) error {
			now := time.Now()
			env := badgerEnvelope{ID: id, CreatedAt: now, UpdatedAt: now}
			current, exists := Document{}, false

			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return fmt.Errorf("get document: %w", err)
			default:
				var existing badgerEnvelope
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &existing)
				}); err != nil {
					return fmt.Errorf("decode document: %w", err)
				}
				env.CreatedAt = existing.CreatedAt
				if existing.Data != nil {
					current = existing.Data
				}
				exists = true
			}

			next, err := fn(current, exists)
			if err != nil {
				return err
			}
			env.Data = next
			raw, err := json.Marshal(env)
			if err != nil {
				return fmt.Errorf("marshal document: %w", err)
			}
			return txn.Set(key, raw)
		})
		// another transaction committed a write to key after this one read it
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (r *badgerDocumentRepository) Close() error {
	return r.db.Close()
}

func (e badgerEnvelope) snapshot() Snapshot {
	data := e.Data
	if data == nil {
		data = Document{}
	}
	return Snapshot{ID: e.ID, Data: data, CreatedAt: e.CreatedAt}
}

package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	postKeyPrefix   = "post:"
	slugKeyPrefix   = "slug:"
	upvoteKeyPrefix = "upvote:"
	userKeyPrefix   = "user:"

	// upvote-by:<post>:<author> holds the id of the author's single record on that post.
	upvoteClaimPrefix = "upvote-by:"
)

// OpenBadger opens the embedded store at path. An empty path opens an in-memory store.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func getJSON(txn *badger.Txn, key string, out interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return txn.Set([]byte(key), data)
}

func keyExists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// eachWithPrefix decodes every value under prefix into a fresh T and hands it to fn.
func eachWithPrefix[T any](txn *badger.Txn, prefix string, fn func(*T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return fmt.Errorf("failed to unmarshal %s entity: %w", prefix, err)
		}
		if err := fn(&v); err != nil {
			return err
		}
	}
	return nil
}

// translateBadgerErr maps transaction conflicts onto the repository contract.
func translateBadgerErr(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return ErrVersionConflict
	}
	return err
}

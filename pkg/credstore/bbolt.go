package credstore

import (
	"fmt"

	"go.etcd.io/bbolt"
	"go.uber.org/multierr"
)

var credentialsBucket = []byte("credentials")

// BoltStore implements Store backed by a bbolt database file.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore returns a Store backed by the given bbolt database.
func NewBoltStore(db *bbolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// NewBoltStoreFromFile opens a bbolt database at the given path and returns
// a new Store.
func NewBoltStoreFromFile(path string, options *bbolt.Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	return NewBoltStore(db), nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Tokens() (Tokens, error) {
	var tokens Tokens
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(KeyAccessToken)); v != nil {
			tokens.Access = string(v)
		}
		if v := b.Get([]byte(KeyRefreshToken)); v != nil {
			tokens.Refresh = string(v)
		}
		return nil
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("reading credentials: %w", err)
	}
	return tokens, nil
}

func (s *BoltStore) SetTokens(tokens Tokens) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(credentialsBucket)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(KeyAccessToken), []byte(tokens.Access)); err != nil {
			return err
		}
		return b.Put([]byte(KeyRefreshToken), []byte(tokens.Refresh))
	})
}

func (s *BoltStore) SetAccessToken(access string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(credentialsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(KeyAccessToken), []byte(access))
	})
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		if b == nil {
			return nil
		}
		return multierr.Combine(
			b.Delete([]byte(KeyAccessToken)),
			b.Delete([]byte(KeyRefreshToken)),
		)
	})
}

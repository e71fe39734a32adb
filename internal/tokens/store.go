package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Store keeps ids of revoked tokens until the tokens would have expired anyway.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) Revoke(_ context.Context, token *Token) error {
	ttl := time.Until(token.Expires)
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(revokedKey(token.ID), []byte(token.UserID)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (s *Store) IsRevoked(_ context.Context, id ID) (bool, error) {
	if err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(revokedKey(id))
		return err
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func revokedKey(id ID) []byte {
	return []byte(fmt.Sprintf("tokens/revoked/%s", id))
}

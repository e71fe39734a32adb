package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
)

func (s *Store) FindByID(_ context.Context, id ID) (*User, error) {
	var user User
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &user)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*User, error) {
	var user User
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			item, err := txn.Get(idKey(ID(value)))
			if err != nil {
				return err
			}
			return item.Value(func(value []byte) error {
				return json.Unmarshal(value, &user)
			})
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Insert stores the user and claims its username in one transaction.
func (s *Store) Insert(_ context.Context, user *User) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		if err := txn.Set(idKey(user.ID), data); err != nil {
			return err
		}
		if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return nil
	})
}

func idKey(id ID) []byte {
	return []byte(fmt.Sprintf("users/id/%s", id))
}

func usernameKey(username string) []byte {
	return []byte(fmt.Sprintf("users/username/%s", username))
}

package grades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/study-grade/internal/users"
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
	ErrAlreadyExists = errors.New("already exists")
)

// InsertRecord stores a new record. Existing records are never overwritten.
func (s *Store) InsertRecord(_ context.Context, record *Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(record.UserID, record.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *Store) FindByID(_ context.Context, userID users.ID, id ID) (*Record, error) {
	var record Record
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(userID, id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func BySemester(semester int) func(*Record) bool {
	return func(record *Record) bool {
		return record.Semester == semester
	}
}

// ListRecords returns records of the user in key order.
func (s *Store) ListRecords(_ context.Context, userID users.ID, filters ...func(*Record) bool) ([]Record, error) {
	var records []Record
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := userPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				var record Record
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				for _, filter := range filters {
					if !filter(&record) {
						return nil
					}
				}
				records = append(records, record)
				return nil
			}); err != nil {
				return fmt.Errorf("%s: %w", it.Item().Key(), err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// KeyPrefix is the prefix shared by all record keys.
const KeyPrefix = "grades/"

func userPrefix(userID users.ID) []byte {
	return []byte(fmt.Sprintf("%s%s/", KeyPrefix, userID))
}

func recordKey(userID users.ID, id ID) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", KeyPrefix, userID, id))
}

package migrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/study-grade/internal/grades"
)

type migration struct {
	name string
	run  func(*slog.Logger, *badger.Txn) error
}

var migrations = []migration{
	{"backfill-grade-metrics", backfillGradeMetrics},
}

// Run applies every migration that has not been applied to db yet.
func Run(logger *slog.Logger, db *badger.DB) error {
	for _, m := range migrations {
		if err := db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(appliedKey(m.name)); err == nil {
				return nil
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := m.run(logger, txn); err != nil {
				return err
			}
			logger.Info("migration applied", "name", m.name)
			return txn.Set(appliedKey(m.name), []byte(time.Now().UTC().Format(time.RFC3339)))
		}); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return nil
}

// backfillGradeMetrics derives metrics for records stored without them.
// Records that already carry metrics are left untouched.
func backfillGradeMetrics(logger *slog.Logger, txn *badger.Txn) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte(grades.KeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		var record grades.Record
		if err := it.Item().Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		}); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if record.Metrics != nil {
			continue
		}
		metrics, err := record.Counts.Metrics()
		if err != nil {
			logger.Warn("record metrics not derivable", "key", string(key), "error", err)
			continue
		}
		record.Metrics = &metrics
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		logger.Info("record metrics backfilled", "key", string(key))
	}
	return nil
}

func appliedKey(name string) []byte {
	return []byte(fmt.Sprintf("migrations/%s", name))
}

package migrations

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dgraph-io/badger/v4"
	"github.com/study-grade/internal/grades"
)

func TestBackfillGradeMetrics(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := grades.NewStore(db)
	ctx := context.Background()

	withoutMetrics := grades.Record{
		ID:       "without",
		UserID:   "user",
		Date:     civil.Date{Year: 2024, Month: 9, Day: 1},
		Semester: 1,
		Subject:  "math",
		Group:    "a",
		Counts:   grades.Counts{TotalStudents: 4, Grade5: 1, Grade4: 1, Grade3: 1, Grade2: 1},
	}
	stored := grades.Metrics{AverageScore: 1, SuccessRate: 2, QualityRate: 3}
	withMetrics := withoutMetrics
	withMetrics.ID = "with"
	withMetrics.Metrics = &stored

	for _, record := range []grades.Record{withoutMetrics, withMetrics} {
		if err := store.InsertRecord(ctx, &record); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Run(logger, db); err != nil {
		t.Fatal(err)
	}
	// second run is a no-op
	if err := Run(logger, db); err != nil {
		t.Fatal(err)
	}

	backfilled, err := store.FindByID(ctx, "user", "without")
	if err != nil {
		t.Fatal(err)
	}
	if backfilled.Metrics == nil {
		t.Fatal("metrics were not backfilled")
	}
	if backfilled.AverageScore != 3.5 || backfilled.SuccessRate != 75 || backfilled.QualityRate != 50 {
		t.Fatalf("unexpected metrics %+v", *backfilled.Metrics)
	}

	untouched, err := store.FindByID(ctx, "user", "with")
	if err != nil {
		t.Fatal(err)
	}
	if *untouched.Metrics != stored {
		t.Fatalf("stored metrics changed: %+v", *untouched.Metrics)
	}

	if err := db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(appliedKey("backfill-grade-metrics"))
		return err
	}); err != nil {
		t.Fatalf("migration not recorded: %s", err)
	}
}

func TestRecordWithoutMetricsEncoding(t *testing.T) {
	data, err := json.Marshal(grades.Record{ID: "id", Counts: grades.Counts{TotalStudents: 1, Grade5: 1}})
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["average_score"]; ok {
		t.Fatal("record without metrics encoded average_score")
	}
	if fields["total_students"] != float64(1) {
		t.Fatalf("counts not flattened: %s", data)
	}
}

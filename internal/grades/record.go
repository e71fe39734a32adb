package grades

import (
	"time"

	"cloud.google.com/go/civil"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/study-grade/internal/users"
)

type ID string

func NewID() ID {
	return ID(gonanoid.Must())
}

// Record is an accepted grade distribution. Records are never changed once
// stored, a resubmission is a new record.
type Record struct {
	ID        ID         `json:"id"`
	UserID    users.ID   `json:"user_id"`
	Date      civil.Date `json:"date"`
	Semester  int        `json:"semester"`
	Subject   string     `json:"subject"`
	Group     string     `json:"group"`
	CreatedAt time.Time  `json:"created_at"`
	Counts
	// Metrics is nil for records stored without them.
	*Metrics
}

func (r Record) metrics() (Metrics, error) {
	if r.Metrics != nil {
		return *r.Metrics, nil
	}
	return r.Counts.Metrics()
}

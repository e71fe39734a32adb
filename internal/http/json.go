package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/study-grade/internal/grades"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// scalar keeps a JSON string or number as text so that parsing and its
// errors stay with grades.Validate.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(str)
	default:
		*s = scalar(data)
	}
	return nil
}

type submissionRequest struct {
	Date          scalar `json:"date"`
	Semester      scalar `json:"semester"`
	Subject       scalar `json:"subject"`
	Group         scalar `json:"group"`
	TotalStudents scalar `json:"total_students"`
	Grade5        scalar `json:"grade_5"`
	Grade4        scalar `json:"grade_4"`
	Grade3        scalar `json:"grade_3"`
	Grade2        scalar `json:"grade_2"`
	NotPassed     scalar `json:"not_passed"`
}

func (r submissionRequest) Submission() grades.Submission {
	return grades.Submission{
		Date:          string(r.Date),
		Semester:      string(r.Semester),
		Subject:       string(r.Subject),
		Group:         string(r.Group),
		TotalStudents: string(r.TotalStudents),
		Grade5:        string(r.Grade5),
		Grade4:        string(r.Grade4),
		Grade3:        string(r.Grade3),
		Grade2:        string(r.Grade2),
		NotPassed:     string(r.NotPassed),
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/study-grade/internal/authentication"
	"github.com/study-grade/internal/grades"
	"github.com/study-grade/internal/statistics"
	"github.com/study-grade/internal/users"
)

func Handler(
	logger *slog.Logger,
	authenticationService *authentication.Service,
	gradesService *grades.Service,
	statisticsService *statistics.Service,
) http.HandlerFunc {
	requireAuth := WithAuthentication(logger, authenticationService)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", handleRegister(logger, authenticationService))
	mux.HandleFunc("POST /api/login", handleLogin(logger, authenticationService))
	mux.HandleFunc("POST /api/logout", requireAuth(handleLogout(logger, authenticationService)))

	mux.HandleFunc("POST /api/grades", requireAuth(handleCreateRecord(logger, gradesService)))
	mux.HandleFunc("GET /api/grades", requireAuth(handleListRecords(logger, statisticsService)))
	mux.HandleFunc("GET /api/grades/{id}", requireAuth(handleGetRecord(logger, gradesService)))
	mux.HandleFunc("GET /api/statistics/semesters", requireAuth(handleSemesterStatistics(logger, statisticsService)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return WithMiddlewares(
		WithRequestID(),
		WithAccessLogs(logger),
		WithCORS(),
	)(mux.ServeHTTP)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       users.ID `json:"id"`
	Username string   `json:"username"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Expires time.Time    `json:"expires"`
	User    userResponse `json:"user"`
}

func handleRegister(
	logger *slog.Logger,
	authenticationService *authentication.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := authenticationService.Register(r.Context(), req.Username, req.Password)
		var inputErr *authentication.InputError
		switch {
		case errors.As(err, &inputErr):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: inputErr.Error(), Field: inputErr.Field})
			return
		case errors.Is(err, users.ErrUsernameTaken):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "username"})
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "register", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to register user")
			return
		}

		writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
	}
}

func handleLogin(
	logger *slog.Logger,
	authenticationService *authentication.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, user, err := authenticationService.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, authentication.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		} else if err != nil {
			logger.ErrorContext(r.Context(), "login", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to log in")
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			Token:   token.Token,
			Expires: token.Expires,
			User:    userResponse{ID: user.ID, Username: user.Username},
		})
	}
}

func handleLogout(
	logger *slog.Logger,
	authenticationService *authentication.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authenticationService.Logout(r.Context()); err != nil {
			logger.ErrorContext(r.Context(), "logout", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to log out")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateRecord(
	logger *slog.Logger,
	gradesService *grades.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		record, err := gradesService.Submit(r.Context(), req.Submission())
		var gradesErr *grades.Error
		switch {
		case errors.As(err, &gradesErr) && gradesErr.Kind != grades.KindPreconditionViolation:
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: gradesErr.Error(),
				Kind:  gradesErr.Kind.String(),
				Field: gradesErr.Field,
			})
			return
		case errors.Is(err, grades.ErrInvalidDate):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: grades.FieldDate})
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "submit record", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save grades")
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

func handleListRecords(
	logger *slog.Logger,
	statisticsService *statistics.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var semester int
		if raw := r.URL.Query().Get("semester"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid semester", Field: grades.FieldSemester})
				return
			}
			semester = parsed
		}

		overview, err := statisticsService.Overview(r.Context(), semester)
		if err != nil {
			logger.ErrorContext(r.Context(), "overview", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list grades")
			return
		}
		if overview.Records == nil {
			overview = &statistics.Overview{Records: []grades.Record{}}
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func handleGetRecord(
	logger *slog.Logger,
	gradesService *grades.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := gradesService.Get(r.Context(), grades.ID(r.PathValue("id")))
		if errors.Is(err, grades.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		} else if err != nil {
			logger.ErrorContext(r.Context(), "get record", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get record")
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleSemesterStatistics(
	logger *slog.Logger,
	statisticsService *statistics.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		semesters, err := statisticsService.Semesters(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "semester statistics", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to calculate statistics")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"semesters": semesters,
		})
	}
}

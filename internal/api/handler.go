// Package api exposes profile lifecycle and status operations over HTTP, plus
// an MCP surface for agents embedding the service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumehealth/intake/internal/profile"
	"github.com/lumehealth/intake/internal/question"
	"github.com/lumehealth/intake/internal/storage"
	"github.com/lumehealth/intake/internal/ws"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ProfileStore is the storage surface the API needs.
// Implemented by *storage.Tiered.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	SaveProfile(ctx context.Context, p profile.Profile) error
	DeleteProfile(ctx context.Context, userID string) error
}

// QuestionSource generates questions and reports provider availability.
// Implemented by *question.Chain.
type QuestionSource interface {
	Generate(ctx context.Context, qc question.Context) (question.Question, error)
	Status(ctx context.Context) []question.ProviderStatus
}

// StatsSource reports conversational session counters.
// Implemented by *ws.Hub.
type StatsSource interface {
	Snapshot() ws.Stats
}

// Deps holds the collaborators of the HTTP surface.
type Deps struct {
	Store     ProfileStore
	Questions QuestionSource
	Stats     StatsSource
	WS        http.Handler // conversational channel; optional
	Version   string
}

// NewHandler builds the intake HTTP router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/profile/init/{user_id}", handleInitProfile(deps))
		r.Get("/profile/{user_id}", handleGetProfile(deps))
		r.Put("/profile/{user_id}", handleUpdateProfile(deps))
		r.Delete("/profile/{user_id}", handleDeleteProfile(deps))
		r.Get("/profile/{user_id}/completion", handleCompletion(deps))
		r.Get("/profile/{user_id}/question", handleNextQuestion(deps))
		r.Get("/generator/status", handleGeneratorStatus(deps))
	})

	r.Get("/ws/stats", handleWSStats(deps))
	if deps.WS != nil {
		r.Get("/ws/{user_id}", deps.WS.ServeHTTP)
	}

	return r
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "intake",
			"message": "conversational wellness profile service",
			"version": deps.Version,
		})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "intake",
			"version": deps.Version,
		})
	}
}

// handleInitProfile creates the profile when absent and returns it either
// way. Re-initializing an existing user never resets fields.
func handleInitProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")

		status := "exists"
		p, err := deps.Store.GetProfile(r.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			p = profile.New(userID)
			if err := deps.Store.SaveProfile(r.Context(), p); err != nil {
				httpError(w, http.StatusServiceUnavailable, "persistence_error", "failed to create profile: %v", err)
				return
			}
			status = "created"
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":  status,
			"profile": p,
		})
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProfile(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handleUpdateProfile merges a JSON object of field updates directly, outside
// the conversational channel. An invalid value rejects the whole request with
// nothing applied.
func handleUpdateProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(updates) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no fields to update")
			return
		}

		p, ok := loadProfile(w, r, deps)
		if !ok {
			return
		}

		if _, err := p.Apply(updates); err != nil {
			var ferr *profile.FieldError
			if errors.As(err, &ferr) {
				httpError(w, http.StatusBadRequest, "validation_error", "%s", ferr.Error())
				return
			}
			httpError(w, http.StatusBadRequest, "validation_error", "invalid update: %v", err)
			return
		}

		if err := deps.Store.SaveProfile(r.Context(), p); err != nil {
			httpError(w, http.StatusServiceUnavailable, "persistence_error", "failed to save profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "updated",
			"profile": p,
		})
	}
}

func handleDeleteProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")

		err := deps.Store.DeleteProfile(r.Context(), userID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "profile not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "persistence_error", "failed to delete profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleCompletion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProfile(w, r, deps)
		if !ok {
			return
		}

		missing := p.MissingFields()
		if missing == nil {
			missing = []string{}
		}
		completed := p.CompletedFields()
		if completed == nil {
			completed = []string{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"completion_percentage": p.Completion(),
			"missing_fields":        missing,
			"completed_fields":      completed,
			"is_complete":           p.IsComplete(),
		})
	}
}

// handleNextQuestion previews the next question without advancing any
// conversation state.
func handleNextQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProfile(w, r, deps)
		if !ok {
			return
		}

		if p.IsComplete() {
			writeJSON(w, http.StatusOK, map[string]any{"complete": true})
			return
		}

		q, err := deps.Questions.Generate(r.Context(), question.Context{
			Profile:       p,
			MissingFields: p.MissingFields(),
			Completion:    p.Completion(),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to generate question: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, q)
	}
}

func handleGeneratorStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers": deps.Questions.Status(r.Context()),
		})
	}
}

func handleWSStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Stats.Snapshot())
	}
}

// loadProfile resolves the request's user_id to a stored profile, writing the
// error response itself when that fails.
func loadProfile(w http.ResponseWriter, r *http.Request, deps Deps) (profile.Profile, bool) {
	userID := chi.URLParam(r, "user_id")

	p, err := deps.Store.GetProfile(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "profile not found")
		return profile.Profile{}, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
		return profile.Profile{}, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/storage"
	"github.com/kalambet/imgask/internal/suggest"
)

const maxSuggestBodySize = 16 << 10 // 16KB

// Analyzer answers a question about decoded image bytes.
type Analyzer interface {
	AnswerImage(ctx context.Context, image []byte, mimeType, question string) (string, error)
}

// Suggester completes a partial question. It never fails; an empty result
// means nothing fits.
type Suggester interface {
	Complete(ctx context.Context, partial string) []string
}

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	Analyzer      Analyzer
	Suggester     Suggester
	Store         *storage.Store // optional; interactions are not logged when nil
	Token         string         // optional; /api/* is open when empty
	MaxImageBytes int
}

// HistoryEntry is one interaction as returned by GET /api/history.
type HistoryEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ImageSource string    `json:"image_source"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// NewHandler returns the imgask HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/analyze-image", handleAnalyzeImage(deps))
		r.Post("/suggestions", handleSuggestions(deps))
		r.Get("/history", handleHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleAnalyzeImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, int64(analyzeBodyLimit(deps.MaxImageBytes)))
		defer r.Body.Close()

		var req imagequery.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "", "request body exceeds %d bytes", tooLarge.Limit)
				return
			}
			httpError(w, http.StatusBadRequest, "", "invalid request body: %v", err)
			return
		}

		answer, err := analyze(r.Context(), deps, req.Image, req.Question, "inline")
		if err != nil {
			re := asRequestError(err)
			httpError(w, re.Status, re.Reason, "%s", re.Message)
			return
		}

		writeJSON(w, http.StatusOK, imagequery.AnalyzeResponse{Success: true, Data: answer})
	}
}

func handleSuggestions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSuggestBodySize)
		defer r.Body.Close()

		var req suggest.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "", "invalid request body: %v", err)
			return
		}
		if utf8.RuneCountInString(strings.TrimSpace(req.Partial)) < suggest.MinQueryLength {
			httpError(w, http.StatusBadRequest, "", "partial must be at least %d characters", suggest.MinQueryLength)
			return
		}

		items := deps.Suggester.Complete(r.Context(), req.Partial)
		if items == nil {
			items = []string{}
		}
		slog.Debug("suggestions served", "context", req.Context, "count", len(items))
		writeJSON(w, http.StatusOK, suggest.Response{Success: true, Suggestions: items})
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := []HistoryEntry{}
		if deps.Store == nil {
			writeJSON(w, http.StatusOK, entries)
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		interactions, err := deps.Store.ListInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "", "failed to list interactions: %v", err)
			return
		}
		for _, i := range interactions {
			entries = append(entries, HistoryEntry{
				ID:          i.ID,
				CreatedAt:   i.CreatedAt,
				ImageSource: i.ImageSource,
				Question:    i.Question,
				Answer:      i.Answer,
				Status:      i.Status,
				Error:       i.Error,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// analyzeBodyLimit allows for base64 expansion of an image of maxImage bytes.
func analyzeBodyLimit(maxImage int) int {
	if maxImage <= 0 {
		maxImage = imagequery.DefaultMaxBytes
	}
	return maxImage/3*4 + 64<<10
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, reason string, format string, args ...any) {
	writeJSON(w, code, imagequery.AnalyzeResponse{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
		Reason:  reason,
	})
}

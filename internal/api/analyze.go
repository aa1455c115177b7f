package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/imgask/internal/gemini"
	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/storage"
)

// RequestError is an analysis failure with the HTTP status it maps to and,
// for policy rejections, a reason code.
type RequestError struct {
	Status  int
	Reason  string
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// analyze validates the request, asks the model and logs the interaction.
// source names where the image came from for the log.
func analyze(ctx context.Context, deps Deps, image, question, source string) (string, error) {
	question = strings.TrimSpace(question)
	switch {
	case question == "":
		return "", badRequest("question is required")
	case utf8.RuneCountInString(question) > imagequery.MaxQuestionLength:
		return "", badRequest("question must be at most %d characters", imagequery.MaxQuestionLength)
	case strings.TrimSpace(image) == "":
		return "", badRequest("image is required")
	}

	data, mimeType, err := imagequery.DecodeDataURI(image)
	if err != nil {
		return "", badRequest("invalid image: %v", err)
	}
	maxBytes := deps.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = imagequery.DefaultMaxBytes
	}
	if len(data) > maxBytes {
		return "", &RequestError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("image is %d bytes, the limit is %d", len(data), maxBytes),
		}
	}

	answer, err := deps.Analyzer.AnswerImage(ctx, data, mimeType, question)
	if err != nil {
		re := classify(err)
		slog.Warn("image analysis failed", "status", re.Status, "reason", re.Reason, "error", err)
		record(deps.Store, storage.Interaction{
			ImageSource: source,
			Question:    question,
			Status:      storage.StatusError,
			Error:       re.Message,
		})
		return "", re
	}

	record(deps.Store, storage.Interaction{
		ImageSource: source,
		Question:    question,
		Answer:      answer,
		Status:      storage.StatusSuccess,
	})
	return answer, nil
}

// classify maps a model error to its HTTP form.
func classify(err error) *RequestError {
	switch {
	case errors.Is(err, gemini.ErrBlockedSafety):
		return &RequestError{Status: http.StatusUnprocessableEntity, Reason: imagequery.ReasonSafety, Message: gemini.ErrBlockedSafety.Error()}
	case errors.Is(err, gemini.ErrBlockedRecitation):
		return &RequestError{Status: http.StatusUnprocessableEntity, Reason: imagequery.ReasonRecitation, Message: gemini.ErrBlockedRecitation.Error()}
	case errors.Is(err, gemini.ErrNoCandidates):
		return &RequestError{Status: http.StatusBadGateway, Message: gemini.ErrNoCandidates.Error()}
	}
	return &RequestError{Status: http.StatusBadGateway, Message: fmt.Sprintf("analysis failed: %v", err)}
}

func asRequestError(err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	return &RequestError{Status: http.StatusInternalServerError, Message: err.Error()}
}

func record(store *storage.Store, i storage.Interaction) {
	if store == nil {
		return
	}
	if _, err := store.SaveInteraction(i); err != nil {
		slog.Warn("failed to record interaction", "error", err)
	}
}

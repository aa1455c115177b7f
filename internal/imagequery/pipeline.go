package imagequery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxQuestionLength is the longest accepted question, in runes, after trimming.
const MaxQuestionLength = 500

// Messages for errors detected by the pipeline itself.
const (
	MsgNoImage         = "Select an image before asking a question."
	MsgEmptyQuestion   = "Question must not be empty."
	MsgQuestionTooLong = "Question must be at most 500 characters."
	MsgFetchFailed     = "failed to fetch image from URL"
	MsgNetwork         = "Could not reach the analysis service. Check your connection and try again."
)

// Status is the lifecycle stage of a query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryResult is the visible outcome of the latest question for the
// current image.
type QueryResult struct {
	Status       Status
	Answer       string
	ErrorMessage string
	// Retryable is set on every error produced after input validation.
	Retryable  bool
	Generation uint64
}

// ImageFetcher turns a remote image location into a data URI.
type ImageFetcher interface {
	Fetch(ctx context.Context, location string) (string, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOnChange registers a callback invoked after every result change,
// without the pipeline lock held.
func WithOnChange(f func(QueryResult)) Option {
	return func(p *Pipeline) { p.onChange = f }
}

// Pipeline owns the current image and the result of the one question that
// may be in flight for it. Answers computed against a replaced image are
// discarded.
type Pipeline struct {
	backend  Backend
	fetcher  ImageFetcher
	onChange func(QueryResult)

	mu     sync.Mutex
	ref    ImageRef
	gen    uint64
	result QueryResult
}

// NewPipeline creates a pipeline with no image selected.
func NewPipeline(backend Backend, fetcher ImageFetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend: backend,
		fetcher: fetcher,
		result:  QueryResult{Status: StatusIdle},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetImage replaces the image and resets the result.
func (p *Pipeline) SetImage(ref ImageRef) {
	p.replace(ref)
}

// ClearImage removes the image and resets the result.
func (p *Pipeline) ClearImage() {
	p.replace(ImageRef{})
}

func (p *Pipeline) replace(ref ImageRef) {
	p.mu.Lock()
	p.ref = ref
	p.gen++
	p.result = QueryResult{Status: StatusIdle, Generation: p.gen}
	r := p.result
	p.mu.Unlock()
	p.notify(r)
}

// Ask submits question about the current image and blocks until the answer
// is known. The returned bool reports whether the result was applied to
// the pipeline state: it is false when another question for the same image
// is still loading, or when the image changed before the answer arrived.
func (p *Pipeline) Ask(ctx context.Context, question string) (QueryResult, bool) {
	question = strings.TrimSpace(question)

	p.mu.Lock()
	if p.result.Status == StatusLoading {
		r := p.result
		p.mu.Unlock()
		return r, false
	}

	if msg := validate(p.ref, question); msg != "" {
		p.result = QueryResult{Status: StatusError, ErrorMessage: msg, Generation: p.gen}
		r := p.result
		p.mu.Unlock()
		p.notify(r)
		return r, true
	}

	gen, ref := p.gen, p.ref
	p.result = QueryResult{Status: StatusLoading, Generation: gen}
	loading := p.result
	p.mu.Unlock()
	p.notify(loading)

	image := ref.Canonical()
	if ref.Kind() == KindURL {
		var err error
		image, err = p.fetcher.Fetch(ctx, ref.Location())
		if err != nil {
			slog.Warn("image fetch failed", "url", ref.Location(), "error", err)
			return p.finish(gen, QueryResult{Status: StatusError, ErrorMessage: MsgFetchFailed, Retryable: true})
		}
	}

	answer, err := p.backend.Analyze(ctx, image, question)
	if err != nil {
		slog.Warn("image analysis failed", "error", err)
		return p.finish(gen, QueryResult{Status: StatusError, ErrorMessage: errorMessage(err), Retryable: true})
	}
	return p.finish(gen, QueryResult{Status: StatusSuccess, Answer: answer})
}

func validate(ref ImageRef, question string) string {
	switch {
	case ref.IsZero():
		return MsgNoImage
	case question == "":
		return MsgEmptyQuestion
	case utf8.RuneCountInString(question) > MaxQuestionLength:
		return MsgQuestionTooLong
	}
	return ""
}

// finish applies r iff the image generation is still gen.
func (p *Pipeline) finish(gen uint64, r QueryResult) (QueryResult, bool) {
	r.Generation = gen
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		slog.Debug("discarding answer for replaced image", "generation", gen)
		return r, false
	}
	p.result = r
	p.mu.Unlock()
	p.notify(r)
	return r, true
}

// Retry clears an error result back to idle so the question can be asked
// again. It reports whether there was an error to clear.
func (p *Pipeline) Retry() bool {
	p.mu.Lock()
	if p.result.Status != StatusError {
		p.mu.Unlock()
		return false
	}
	p.result = QueryResult{Status: StatusIdle, Generation: p.gen}
	r := p.result
	p.mu.Unlock()
	p.notify(r)
	return true
}

// Result returns the current result.
func (p *Pipeline) Result() QueryResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Generation returns the current image generation.
func (p *Pipeline) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Image returns the current image ref, which may be zero.
func (p *Pipeline) Image() ImageRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

func (p *Pipeline) notify(r QueryResult) {
	if p.onChange != nil {
		p.onChange(r)
	}
}

// errorMessage maps a backend failure to the text shown to the user.
func errorMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		switch be.Reason {
		case ReasonSafety:
			return SafetyMessage
		case ReasonRecitation:
			return RecitationMessage
		}
		if be.Message != "" {
			return be.Message
		}
		return fmt.Sprintf("Analysis failed (HTTP %d).", be.Status)
	}
	return MsgNetwork
}

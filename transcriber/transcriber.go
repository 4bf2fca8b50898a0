package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"murmur/config"
)

// Request is one utterance handed to an engine, already trimmed and
// resampled. Language and Model override the configured defaults when set.
type Request struct {
	Samples    []int16
	SampleRate int
	Language   string
	Model      string
}

type Result struct {
	Text      string
	Metrics   *NetworkMetrics
	RateLimit string
}

// Transcriber converts one utterance into text. One call per recording
// session; cancellation and the per-call deadline arrive through ctx.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}

type ErrorKind string

const (
	KindNetwork            ErrorKind = "network"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindRateLimited        ErrorKind = "rate_limited"
	KindServiceError       ErrorKind = "service_error"
	KindLocalEngineFailure ErrorKind = "local_engine_failure"
	KindMalformedOutput    ErrorKind = "malformed_output"
	KindTimeout            ErrorKind = "timeout"
	KindCancelled          ErrorKind = "cancelled"
)

// Error is the typed failure every engine returns. Callers branch on Kind;
// nothing here is retried automatically.
type Error struct {
	Kind   ErrorKind
	Engine string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Engine, e.Kind)
	if e.Status != 0 {
		s += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// fromContext maps a dead context to Timeout or Cancelled. Returns nil when
// the context is still live and the failure came from somewhere else.
func fromContext(ctx context.Context, engine string, cause error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Engine: engine, Err: cause}
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindCancelled, Engine: engine, Err: cause}
	}
	return nil
}

// New builds the configured engine, failing fast on missing parameters so a
// bad setup surfaces at startup, not on the first recording.
func New(cfg config.EngineConfig) (Transcriber, error) {
	switch cfg.Kind {
	case "openai":
		return NewOpenAI(cfg)
	case "whisper-cpp":
		return NewWhisperCPP(cfg)
	default:
		return nil, fmt.Errorf("unknown engine %q (use openai or whisper-cpp)", cfg.Kind)
	}
}

// Timeout returns the configured per-call deadline, with a floor so a zero
// config value never turns into an instantly-dead context.
func Timeout(cfg config.EngineConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 30 * time.Second
	}
	return cfg.Timeout
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

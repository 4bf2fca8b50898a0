package transcriber

import (
	"context"
	"sync"
	"time"
)

// Fake is the engine used by tests and by -test runs: fixed text or error,
// optional delay so cancellation paths can be exercised.
type Fake struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls []Request
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return Result{}, fromContext(ctx, f.Name(), ctx.Err())
		}
	}
	if f.Err != nil {
		return Result{}, f.Err
	}
	return Result{Text: f.Text}, nil
}

// Calls returns a copy of every request seen so far.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

package transcriber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"murmur/config"
)

func openAICfg() config.EngineConfig {
	return config.EngineConfig{
		Kind:     "openai",
		APIKey:   "sk-test",
		Model:    "gpt-4o-transcribe",
		Format:   "wav",
		Language: "en",
	}
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAI, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI(openAICfg())
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	o.apiURL = srv.URL
	return o, srv
}

func speech(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i % 100) * 80)
	}
	return samples
}

func TestOpenAISuccess(t *testing.T) {
	var gotAuth, gotModel string
	o, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		gotModel = r.FormValue("model")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			f.Close()
			if len(data) < 12 || string(data[:4]) != "RIFF" {
				t.Error("uploaded file is not a WAV container")
			}
		}

		w.Header().Set("x-ratelimit-remaining-requests", "99")
		w.Header().Set("x-ratelimit-limit-requests", "100")
		io.WriteString(w, `{"text": "  hello world  "}`)
	})

	res, err := o.Transcribe(context.Background(), Request{Samples: speech(1600), SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q, want %q", res.Text, "hello world")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "gpt-4o-transcribe" {
		t.Errorf("model = %q", gotModel)
	}
	if res.RateLimit != "99/100" {
		t.Errorf("RateLimit = %q", res.RateLimit)
	}
	if res.Metrics == nil || res.Metrics.Total <= 0 {
		t.Error("expected network metrics")
	}
}

func TestOpenAIStatusMapping(t *testing.T) {
	for _, tt := range []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindServiceError},
		{http.StatusBadRequest, KindServiceError},
	} {
		t.Run(string(tt.want), func(t *testing.T) {
			o, _ := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := o.Transcribe(context.Background(), Request{Samples: speech(160), SampleRate: 16000})
			var terr *Error
			if !errors.As(err, &terr) {
				t.Fatalf("want *Error, got %v", err)
			}
			if terr.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", terr.Kind, tt.want)
			}
			if terr.Status != tt.status {
				t.Errorf("Status = %d, want %d", terr.Status, tt.status)
			}
		})
	}
}

func TestOpenAIMalformedResponse(t *testing.T) {
	o, _ := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html>definitely not json</html>")
	})

	_, err := o.Transcribe(context.Background(), Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindMalformedOutput {
		t.Fatalf("want malformed_output, got %v", err)
	}
}

func TestOpenAINetworkError(t *testing.T) {
	o, srv := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {})
	srv.Close()

	_, err := o.Transcribe(context.Background(), Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindNetwork {
		t.Fatalf("want network, got %v", err)
	}
}

func TestOpenAITimeout(t *testing.T) {
	o, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) // drain so the server can observe the client going away
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := o.Transcribe(ctx, Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindTimeout {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestOpenAICancelled(t *testing.T) {
	started := make(chan struct{})
	o, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) // drain so the server can observe the client going away
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := o.Transcribe(ctx, Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindCancelled {
		t.Fatalf("want cancelled, got %v", err)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	cfg := openAICfg()
	cfg.APIKey = ""
	if _, err := NewOpenAI(cfg); err == nil {
		t.Error("expected error for missing API key")
	}
}

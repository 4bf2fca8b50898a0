package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"murmur/config"
)

// fakeBinary writes a shell script standing in for the whisper.cpp
// executable. The real invocation is "-m model -f wav -otxt", so $4 is the
// input WAV path.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures are unix only")
	}
	path := filepath.Join(t.TempDir(), "whisper")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func fakeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func whisperCfg(bin, model string) config.EngineConfig {
	return config.EngineConfig{
		Kind:       "whisper-cpp",
		BinaryPath: bin,
		ModelPath:  model,
		Language:   "en",
	}
}

func TestWhisperCPPSuccess(t *testing.T) {
	bin := fakeBinary(t, `printf 'hello from local\n' > "$4.txt"`)
	w, err := NewWhisperCPP(whisperCfg(bin, fakeModel(t)))
	if err != nil {
		t.Fatalf("NewWhisperCPP: %v", err)
	}

	res, err := w.Transcribe(context.Background(), Request{Samples: speech(1600), SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello from local" {
		t.Errorf("Text = %q, want %q", res.Text, "hello from local")
	}
}

func TestWhisperCPPNonZeroExit(t *testing.T) {
	bin := fakeBinary(t, `echo "model load failed" >&2; exit 1`)
	w, err := NewWhisperCPP(whisperCfg(bin, fakeModel(t)))
	if err != nil {
		t.Fatalf("NewWhisperCPP: %v", err)
	}

	_, err = w.Transcribe(context.Background(), Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindLocalEngineFailure {
		t.Fatalf("want local_engine_failure, got %v", err)
	}
	if terr.Msg != "model load failed" {
		t.Errorf("Msg = %q, want stderr content", terr.Msg)
	}
}

func TestWhisperCPPMissingTranscript(t *testing.T) {
	bin := fakeBinary(t, `exit 0`)
	w, err := NewWhisperCPP(whisperCfg(bin, fakeModel(t)))
	if err != nil {
		t.Fatalf("NewWhisperCPP: %v", err)
	}

	_, err = w.Transcribe(context.Background(), Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindMalformedOutput {
		t.Fatalf("want malformed_output, got %v", err)
	}
}

func TestWhisperCPPTimeout(t *testing.T) {
	bin := fakeBinary(t, `sleep 10`)
	w, err := NewWhisperCPP(whisperCfg(bin, fakeModel(t)))
	if err != nil {
		t.Fatalf("NewWhisperCPP: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = w.Transcribe(ctx, Request{Samples: speech(160), SampleRate: 16000})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindTimeout {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestNewWhisperCPPMissingPaths(t *testing.T) {
	if _, err := NewWhisperCPP(whisperCfg("", "")); err == nil {
		t.Error("expected error for empty paths")
	}
	if _, err := NewWhisperCPP(whisperCfg("/nonexistent/whisper", "/nonexistent/model")); err == nil {
		t.Error("expected error for missing binary")
	}
}

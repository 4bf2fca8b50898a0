package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"murmur/config"
	"murmur/encoder"
)

// WhisperCPP shells out to a local whisper.cpp binary. Each call writes the
// utterance to a temp WAV, runs the binary with -otxt, and reads the
// transcript the binary leaves next to the input file.
type WhisperCPP struct {
	binPath   string
	modelPath string
	language  string
}

func NewWhisperCPP(cfg config.EngineConfig) (*WhisperCPP, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("whisper-cpp engine needs a binary path")
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("whisper-cpp engine needs a model path")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("whisper-cpp binary: %w", err)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("whisper-cpp model: %w", err)
	}
	return &WhisperCPP{
		binPath:   cfg.BinaryPath,
		modelPath: cfg.ModelPath,
		language:  cfg.Language,
	}, nil
}

func (w *WhisperCPP) Name() string { return "whisper-cpp" }

func (w *WhisperCPP) Transcribe(ctx context.Context, req Request) (Result, error) {
	dir, err := os.MkdirTemp("", "murmur-whisper-")
	if err != nil {
		return Result{}, &Error{Kind: KindLocalEngineFailure, Engine: w.Name(), Err: err}
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "audio.wav")
	if err := encoder.WriteWAVFile(wavPath, req.Samples, req.SampleRate); err != nil {
		return Result{}, &Error{Kind: KindLocalEngineFailure, Engine: w.Name(), Err: err}
	}

	args := []string{"-m", w.modelPath, "-f", wavPath, "-otxt"}
	if lang := w.languageFor(req); lang != "" {
		args = append(args, "-l", lang)
	}
	cmd := exec.CommandContext(ctx, w.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// CommandContext kills the process when the context dies, so map
		// that case before blaming the binary.
		if ctxErr := fromContext(ctx, w.Name(), err); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, &Error{Kind: KindLocalEngineFailure, Engine: w.Name(), Msg: snippet(stderr.Bytes()), Err: err}
	}

	// whisper.cpp writes the transcript as <input>.txt.
	out, err := os.ReadFile(wavPath + ".txt")
	if err != nil {
		return Result{}, &Error{Kind: KindMalformedOutput, Engine: w.Name(), Msg: "transcript file missing", Err: err}
	}

	return Result{Text: strings.TrimSpace(string(out))}, nil
}

func (w *WhisperCPP) languageFor(req Request) string {
	if req.Language != "" {
		return req.Language
	}
	return w.language
}

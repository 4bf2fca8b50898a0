package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"murmur/audio"
	"murmur/config"
	"murmur/hotkey"
	"murmur/log"
	"murmur/output"
	"murmur/recorder"
	"murmur/shutdown"
	"murmur/transcriber"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Config file path (default: ~/.config/murmur/config.yaml)")
	bindingFlag := flag.String("binding", "", "Trigger binding, e.g. F9 or CTRL+SHIFT+SPACE")
	modeFlag := flag.String("mode", "", "Recording mode: toggle or ptt")
	outputFlag := flag.String("output", "", "Output mode: clipboard, type, or both")
	engineFlag := flag.String("engine", "", "Transcription engine: openai or whisper-cpp")
	langFlag := flag.String("lang", "", "Language hint, e.g. en, ja. Empty = engine default")
	modelFlag := flag.String("model", "", "Model name for the engine")
	speedFlag := flag.Float64("speed", 0, "Playback speed factor before transcription (0.5-3.0)")
	formatFlag := flag.String("format", "", "Upload container: wav or flac")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	saveAudioFlag := flag.Bool("save-audio", false, "Keep a WAV copy of each utterance in the log directory")
	logPathFlag := flag.String("logpath", "", "Log directory (default: OS-specific location)")
	testFlag := flag.String("test", "", "Test mode: feed the given WAV through the pipeline, stdin-driven")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic to verify crash logging")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolving log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n",
			time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}
	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags that were actually set override the file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "binding":
			cfg.Binding = *bindingFlag
		case "mode":
			cfg.Mode = *modeFlag
		case "output":
			cfg.Output = *outputFlag
		case "engine":
			cfg.Engine.Kind = *engineFlag
		case "lang":
			cfg.Engine.Language = *langFlag
		case "model":
			cfg.Engine.Model = *modelFlag
		case "speed":
			cfg.SpeedFactor = *speedFlag
		case "format":
			cfg.Engine.Format = *formatFlag
		case "save-audio":
			cfg.SaveAudio = *saveAudioFlag
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	binding, err := hotkey.Parse(cfg.Binding, hotkey.Mode(cfg.Mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	engine, err := transcriber.New(cfg.Engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if remote, ok := engine.(*transcriber.OpenAI); ok {
		remote.Warm()
	}

	if *testFlag != "" {
		runTestMode(cfg, binding, engine, *testFlag)
		return
	}

	dispatcher, err := output.New(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	selectedDevice := findDevice(ctx, *deviceFlag)
	if selectedDevice == nil && *setupFlag {
		selectedDevice, err = selectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\nFalling back to default device\n", err)
		}
	}

	capture, err := ctx.NewCapture(selectedDevice, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   uint32(cfg.Channels),
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	listener := hotkey.NewListener()
	if err := listener.Start(); err != nil {
		log.Errorf("key listener error: %v", err)
		fmt.Fprintf(os.Stderr, "Error starting key listener: %v\n", err)
		os.Exit(1)
	}
	defer listener.Stop()

	rec := recorder.New(capture, engine, cfg)
	go rec.Run()
	defer rec.Close()

	interp := hotkey.NewInterpreter(binding, cfg.CancelKey, rec.IsRecording, rec.IsActive)

	fmt.Printf("murmur %s — %s (%s mode), engine %s, device %s\n",
		version, binding, cfg.Mode, engine.Name(), capture.DeviceName())
	log.Info("ready")

	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)

	sessions := 0
	for {
		select {
		case <-sigCh:
			log.SessionEnd(sessions)
			return
		case ev := <-listener.Events():
			if sig, ok := interp.Feed(ev); ok {
				rec.Signal(sig)
			}
		case out := <-rec.Outcomes():
			if handleOutcome(dispatcher, out) {
				sessions++
			}
		}
	}
}

// handleOutcome delivers a finished session to the desktop. Returns true
// when a transcript was produced.
func handleOutcome(dispatcher *output.Dispatcher, out recorder.Outcome) bool {
	switch out.Status {
	case recorder.StatusOK:
		if err := dispatcher.Dispatch(out.Text); err != nil {
			log.Errorf("output dispatch: %v", err)
			output.Notify("murmur", fmt.Sprintf("output failed: %v", err))
			return false
		}
		output.Notify("murmur", truncate(out.Text, 120))
		return true
	case recorder.StatusNoAudio:
		output.Notify("murmur", "no audio captured")
	case recorder.StatusCancelled:
		// nothing to deliver
	default:
		log.Errorf("session failed (%s): %v", out.Status, out.Err)
		output.Notify("murmur", "transcription failed: "+out.Status)
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"murmur/audio"
	"murmur/config"
	"murmur/hotkey"
	"murmur/log"
	"murmur/recorder"
	"murmur/transcriber"
)

// runTestMode drives the full pipeline headless: audio comes from a WAV
// file on a fake capture device, triggers come from stdin commands
// (KEYDOWN, KEYUP, CANCEL, WAIT, WAIT_AUDIO_DONE, SLEEP <ms>, QUIT), and
// outcomes print to stdout as RESULT lines.
func runTestMode(cfg config.Config, binding hotkey.Binding, engine transcriber.Transcriber, wavPath string) {
	fakeCtx, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   uint32(cfg.Channels),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()
	fakeCapture := capture.(*audio.FakeCapture)

	rec := recorder.New(capture, engine, cfg)
	go rec.Run()
	defer rec.Close()

	fl := hotkey.NewFake()
	interp := hotkey.NewInterpreter(binding, cfg.CancelKey, rec.IsRecording, rec.IsActive)

	outcomeSeen := make(chan struct{}, 1)
	sessions := 0

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch {
			case cmd == "KEYDOWN":
				fl.SimKey(true, binding.Key, binding.Mods)
			case cmd == "KEYUP":
				fl.SimKey(false, binding.Key, binding.Mods)
			case cmd == "CANCEL":
				fl.SimPress(cfg.CancelKey)
			case cmd == "WAIT":
				<-outcomeSeen
			case cmd == "WAIT_AUDIO_DONE":
				<-fakeCapture.AudioDone()
			case cmd == "QUIT":
				log.SessionEnd(sessions)
				os.Exit(0)
			case strings.HasPrefix(cmd, "SLEEP "):
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
		log.SessionEnd(sessions)
		os.Exit(0)
	}()

	for {
		select {
		case ev := <-fl.Events():
			if sig, ok := interp.Feed(ev); ok {
				rec.Signal(sig)
			}
		case out := <-rec.Outcomes():
			if out.Status == recorder.StatusOK {
				sessions++
			}
			if out.Err != nil {
				fmt.Printf("RESULT %s %v\n", out.Status, out.Err)
			} else {
				fmt.Printf("RESULT %s %q\n", out.Status, out.Text)
			}
			select {
			case outcomeSeen <- struct{}{}:
			default:
			}
		}
	}
}

package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/config"
	"murmur/dsp"
	"murmur/encoder"
	"murmur/hotkey"
	"murmur/log"
	"murmur/transcriber"
)

type State int32

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// Session outcome statuses as they appear in the structured log.
const (
	StatusOK           = "ok"
	StatusNoAudio      = "no_audio_captured"
	StatusCancelled    = "cancelled"
	StatusCaptureError = "capture_error"
)

// Outcome is the single result emitted per recording session: transcript
// text, the no-audio status, or an error. Never more than one per session.
type Outcome struct {
	Status         string
	Text           string
	Err            error
	Duration       time.Duration
	SamplesRemoved int
}

// Recorder is the state machine at the center of the pipeline. One loop owns
// all state; trigger signals, audio frames, and engine results arrive over
// channels, so transitions never race.
type Recorder struct {
	capture audio.CaptureDevice
	engine  transcriber.Transcriber
	cfg     config.Config
	det     *dsp.Detector

	state       atomic.Int32
	signals     chan hotkey.Signal
	frames      chan []int16
	captureErrs chan error
	procDone    chan procResult
	outcomes    chan Outcome
	done        chan struct{}

	// session, loop-owned
	sessionID   uint64
	buffer      []int16
	startedAt   time.Time
	sessionStop chan struct{}
	cancelProc  context.CancelFunc
	procAborted bool
}

type procResult struct {
	id  uint64
	out Outcome
}

func New(capture audio.CaptureDevice, engine transcriber.Transcriber, cfg config.Config) *Recorder {
	return &Recorder{
		capture:     capture,
		engine:      engine,
		cfg:         cfg,
		det:         dsp.NewDetector(cfg.Silence.Threshold, cfg.SampleRate),
		signals:     make(chan hotkey.Signal, 8),
		frames:      make(chan []int16, 256),
		captureErrs: make(chan error, 1),
		procDone:    make(chan procResult, 1),
		outcomes:    make(chan Outcome, 4),
		done:        make(chan struct{}),
	}
}

func (r *Recorder) State() State     { return State(r.state.Load()) }
func (r *Recorder) IsRecording() bool { return r.State() == StateRecording }
func (r *Recorder) IsActive() bool    { return r.State() != StateIdle }

// Signal enqueues a trigger signal; safe from any goroutine.
func (r *Recorder) Signal(s hotkey.Signal) {
	select {
	case r.signals <- s:
	case <-r.done:
	}
}

// ReportCaptureError tells the loop the device feed failed. The current
// session, if any, is aborted.
func (r *Recorder) ReportCaptureError(err error) {
	select {
	case r.captureErrs <- err:
	default:
	}
}

func (r *Recorder) Outcomes() <-chan Outcome { return r.outcomes }

func (r *Recorder) Close() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// Run is the single consumer loop. It returns after Close.
func (r *Recorder) Run() {
	for {
		select {
		case <-r.done:
			if r.State() == StateRecording {
				r.stopCapture()
			}
			if r.cancelProc != nil {
				r.cancelProc()
			}
			return
		case sig := <-r.signals:
			r.handleSignal(sig)
		case frame := <-r.frames:
			r.handleFrame(frame)
		case err := <-r.captureErrs:
			r.handleCaptureError(err)
		case res := <-r.procDone:
			r.handleProcDone(res)
		}
	}
}

func (r *Recorder) handleSignal(sig hotkey.Signal) {
	switch r.State() {
	case StateIdle:
		if sig == hotkey.SignalStart {
			r.startSession()
		}
	case StateRecording:
		switch sig {
		case hotkey.SignalStop:
			r.finishRecording()
		case hotkey.SignalCancel:
			r.cancelRecording()
		}
	case StateProcessing:
		// One session in flight: Start and Stop are ignored here.
		if sig == hotkey.SignalCancel {
			r.cancelProcessing()
		}
	}
}

func (r *Recorder) startSession() {
	// Frames still queued from the previous session must not leak in.
	r.drainFrames()

	r.sessionID++
	r.buffer = nil
	r.det.Reset()
	r.startedAt = time.Now()
	r.sessionStop = make(chan struct{})

	// The send must not block past the session's end: Stop on some
	// backends waits for in-flight callbacks, and the loop calling Stop is
	// the same one that drains this channel.
	stop := r.sessionStop
	r.capture.SetCallback(func(data []byte, _ uint32) {
		samples := audio.DecodeSamples(data)
		select {
		case r.frames <- samples:
		case <-stop:
		case <-r.done:
		}
	})
	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		r.emit(Outcome{Status: StatusCaptureError, Err: err})
		return
	}

	r.state.Store(int32(StateRecording))
	log.SessionStart(r.engine.Name(), r.cfg.Binding, r.cfg.Mode)
}

func (r *Recorder) handleFrame(frame []int16) {
	if r.State() != StateRecording {
		// Keep the channel drained so the capture callback never blocks.
		return
	}
	r.buffer = append(r.buffer, frame...)
	r.det.Feed(frame)

	if r.cfg.Mode == string(hotkey.ModeToggle) &&
		r.det.SilentFor() >= r.cfg.Silence.AutoStopAfter {
		log.Info("auto_stop_on_silence")
		r.finishRecording()
	}
}

func (r *Recorder) stopCapture() {
	if r.sessionStop != nil {
		close(r.sessionStop)
		r.sessionStop = nil
	}
	r.capture.Stop()
	r.capture.ClearCallback()
}

func (r *Recorder) finishRecording() {
	r.stopCapture()

	buffer := r.buffer
	r.buffer = nil

	if len(buffer) == 0 {
		r.state.Store(int32(StateIdle))
		r.emit(Outcome{Status: StatusNoAudio, Duration: time.Since(r.startedAt)})
		return
	}

	r.state.Store(int32(StateProcessing))
	r.procAborted = false

	ctx, cancel := context.WithTimeout(context.Background(), transcriber.Timeout(r.cfg.Engine))
	r.cancelProc = cancel
	go r.process(ctx, r.sessionID, buffer, r.startedAt)
}

func (r *Recorder) cancelRecording() {
	r.stopCapture()
	r.buffer = nil
	r.state.Store(int32(StateIdle))
	r.emit(Outcome{Status: StatusCancelled, Duration: time.Since(r.startedAt)})
}

func (r *Recorder) cancelProcessing() {
	if r.cancelProc != nil {
		r.cancelProc()
		r.cancelProc = nil
	}
	r.procAborted = true
	r.state.Store(int32(StateIdle))
	r.emit(Outcome{Status: StatusCancelled, Duration: time.Since(r.startedAt)})
}

func (r *Recorder) handleProcDone(res procResult) {
	// A result from an aborted or stale session must not surface.
	if res.id != r.sessionID || r.procAborted {
		return
	}
	if r.cancelProc != nil {
		r.cancelProc()
		r.cancelProc = nil
	}
	r.state.Store(int32(StateIdle))
	r.emit(res.out)
}

func (r *Recorder) handleCaptureError(err error) {
	if r.State() != StateRecording {
		return
	}
	r.stopCapture()
	r.buffer = nil
	r.state.Store(int32(StateIdle))
	r.emit(Outcome{Status: StatusCaptureError, Err: err, Duration: time.Since(r.startedAt)})
}

// process runs off-loop: trims silence, resamples, and calls the engine.
// The loop stays responsive to Cancel while this runs.
func (r *Recorder) process(ctx context.Context, id uint64, samples []int16, started time.Time) {
	spans := r.det.FindSilences(samples, r.cfg.Silence.MinSpan, r.cfg.Silence.MergeGap)
	p := dsp.Process(samples, spans, r.cfg.SpeedFactor)
	duration := time.Since(started)

	if len(p.Samples) == 0 {
		r.finishProc(procResult{id: id, out: Outcome{
			Status:         StatusNoAudio,
			Duration:       duration,
			SamplesRemoved: p.SamplesRemoved,
		}})
		return
	}

	r.saveDiagnosticCopy(p.Samples)

	res, err := r.engine.Transcribe(ctx, transcriber.Request{
		Samples:    p.Samples,
		SampleRate: r.cfg.SampleRate,
		Language:   r.cfg.Engine.Language,
		Model:      r.cfg.Engine.Model,
	})
	if err != nil {
		r.finishProc(procResult{id: id, out: Outcome{
			Status:         statusFor(err),
			Err:            err,
			Duration:       duration,
			SamplesRemoved: p.SamplesRemoved,
		}})
		return
	}

	if res.Metrics != nil {
		m := res.Metrics
		log.NetworkTiming(r.engine.Name(),
			float64(m.DNS.Milliseconds()), float64(m.TLS.Milliseconds()),
			float64(m.TTFB.Milliseconds()), float64(m.Total.Milliseconds()),
			m.ConnReused, m.TLSProtocol)
	}

	r.finishProc(procResult{id: id, out: Outcome{
		Status:         StatusOK,
		Text:           res.Text,
		Duration:       duration,
		SamplesRemoved: p.SamplesRemoved,
	}})
}

func (r *Recorder) finishProc(res procResult) {
	select {
	case r.procDone <- res:
	case <-r.done:
	}
}

func (r *Recorder) emit(out Outcome) {
	log.SessionOutcome(out.Duration, out.SamplesRemoved, out.Status)
	if out.Status == StatusOK && out.Text != "" {
		log.TranscriptionText(out.Text)
	}
	select {
	case r.outcomes <- out:
	case <-r.done:
	}
}

func (r *Recorder) drainFrames() {
	for {
		select {
		case <-r.frames:
		default:
			return
		}
	}
}

// saveDiagnosticCopy dumps the post-processed audio next to the logs when
// configured. Failures are logged, never fatal.
func (r *Recorder) saveDiagnosticCopy(samples []int16) {
	if !r.cfg.SaveAudio {
		return
	}
	path := filepath.Join(log.Dir(), "last_recording.wav")
	if err := encoder.WriteWAVFile(path, samples, r.cfg.SampleRate); err != nil {
		log.Warnf("saving diagnostic audio: %v", err)
	}
}

// statusFor maps an engine failure to the final_status logged for the
// session. Typed engine errors log their kind.
func statusFor(err error) string {
	var terr *transcriber.Error
	if errors.As(err, &terr) {
		return string(terr.Kind)
	}
	return "error"
}

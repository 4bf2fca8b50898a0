package hotkey

// Signal is an abstract trigger decision derived from the raw key stream.
type Signal int

const (
	SignalStart Signal = iota
	SignalStop
	SignalCancel
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalStop:
		return "stop"
	case SignalCancel:
		return "cancel"
	}
	return "unknown"
}

// Interpreter turns raw key events into start/stop/cancel signals according
// to the configured binding and mode. It holds no recording state of its
// own; the current phase is queried through the injected callbacks so the
// interpreter stays a pure function of (event, phase).
type Interpreter struct {
	binding   Binding
	cancelKey string // empty disables cancel

	isRecording func() bool
	isActive    func() bool // recording or processing

	pttHeld bool
}

// NewInterpreter builds an interpreter for binding. cancelKey may be ""
// to disable the cancel trigger. isRecording reports an open session;
// isActive additionally covers the processing phase.
func NewInterpreter(binding Binding, cancelKey string, isRecording, isActive func() bool) *Interpreter {
	return &Interpreter{
		binding:     binding,
		cancelKey:   NormalizeKey(cancelKey),
		isRecording: isRecording,
		isActive:    isActive,
	}
}

// Feed consumes one raw key event and reports the resulting signal, if any.
func (in *Interpreter) Feed(ev KeyEvent) (Signal, bool) {
	if in.cancelKey != "" && ev.Down && ev.Key == in.cancelKey && ev.Mods == 0 {
		if in.isActive() {
			in.pttHeld = false
			return SignalCancel, true
		}
		return 0, false
	}

	switch in.binding.Mode {
	case ModePTT:
		return in.feedPTT(ev)
	default:
		return in.feedToggle(ev)
	}
}

func (in *Interpreter) feedToggle(ev KeyEvent) (Signal, bool) {
	// Toggle acts on key-down only.
	if !ev.Down || !in.binding.Matches(ev) {
		return 0, false
	}
	if in.isRecording() {
		return SignalStop, true
	}
	return SignalStart, true
}

func (in *Interpreter) feedPTT(ev KeyEvent) (Signal, bool) {
	if ev.Down {
		if in.binding.Matches(ev) && !in.pttHeld {
			in.pttHeld = true
			return SignalStart, true
		}
		return 0, false
	}
	// Key-up: modifiers may already be released, so match the primary key
	// only, and only if we saw the matching key-down. A stray release from
	// an unrelated key press sequence is a no-op.
	if ev.Key == in.binding.Key && in.pttHeld {
		in.pttHeld = false
		return SignalStop, true
	}
	return 0, false
}

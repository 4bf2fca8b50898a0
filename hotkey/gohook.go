package hotkey

import (
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// hookListener adapts the global gohook keyboard hook into the Listener
// contract, tracking modifier state from the modifier keys' own down/up
// events so every KeyEvent carries the full held set.
type hookListener struct {
	events chan KeyEvent
	stop   chan struct{}
	once   sync.Once

	mods Modifier
}

func NewListener() Listener {
	return &hookListener{
		events: make(chan KeyEvent, 64),
		stop:   make(chan struct{}),
	}
}

func (l *hookListener) Start() error {
	raw := hook.Start()
	go l.run(raw)
	return nil
}

func (l *hookListener) Stop() {
	l.once.Do(func() {
		close(l.stop)
		hook.End()
	})
}

func (l *hookListener) Events() <-chan KeyEvent { return l.events }

func (l *hookListener) run(raw chan hook.Event) {
	for {
		select {
		case <-l.stop:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				l.emit(ev, true)
			case hook.KeyUp:
				l.emit(ev, false)
			}
		}
	}
}

func (l *hookListener) emit(ev hook.Event, down bool) {
	name := keyName(ev)
	if name == "" {
		return
	}

	if mod, ok := modifierName(name); ok {
		if down {
			l.mods |= mod
		} else {
			l.mods &^= mod
		}
		// Modifier transitions are forwarded too; the interpreter just
		// never matches them.
	}

	// For the primary key's own event, the held set excludes the key itself.
	mods := l.mods
	if mod, ok := modifierName(name); ok {
		mods &^= mod
	}

	select {
	case l.events <- KeyEvent{Down: down, Key: name, Mods: mods, Time: time.Now()}:
	default:
		// The consumer loop is behind; dropping a raw event is preferable
		// to blocking the hook callback thread.
	}
}

func keyName(ev hook.Event) string {
	if name := hook.RawcodetoKeychar(ev.Rawcode); name != "" {
		return NormalizeKey(gohookAliases(name))
	}
	if ev.Keychar != 0 && ev.Keychar != 65535 {
		return NormalizeKey(string(rune(ev.Keychar)))
	}
	return ""
}

func gohookAliases(name string) string {
	switch strings.ToLower(name) {
	case "left ctrl", "right ctrl", "ctrl":
		return "CTRL"
	case "left shift", "right shift", "shift":
		return "SHIFT"
	case "left alt", "right alt", "alt":
		return "ALT"
	case "left cmd", "right cmd", "cmd", "left win", "right win":
		return "SUPER"
	case "escape":
		return "ESC"
	case " ":
		return "SPACE"
	}
	return name
}

func modifierName(name string) (Modifier, bool) {
	mod, ok := modNames[name]
	return mod, ok
}

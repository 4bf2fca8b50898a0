package hotkey

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "CTRL")
	}
	if m.Has(ModShift) {
		parts = append(parts, "SHIFT")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "ALT")
	}
	if m.Has(ModSuper) {
		parts = append(parts, "SUPER")
	}
	return strings.Join(parts, "+")
}

// Mode selects how the trigger binding starts and stops recording.
type Mode string

const (
	ModeToggle Mode = "toggle"
	ModePTT    Mode = "ptt"
)

// KeyEvent is one raw keyboard event as delivered by a Listener.
// Mods is the full modifier set held at the time of the event.
type KeyEvent struct {
	Down bool
	Key  string // normalized key name, e.g. "F9", "J", "SPACE"
	Mods Modifier
	Time time.Time
}

// Binding is a parsed trigger specification: an exact modifier set plus one
// primary key. Immutable after Parse.
type Binding struct {
	Mods Modifier
	Key  string
	Mode Mode
}

func (b Binding) String() string {
	if b.Mods == 0 {
		return b.Key
	}
	return b.Mods.String() + "+" + b.Key
}

// Matches reports whether a key-down event is exactly this binding: same
// primary key and the same modifier set, nothing extra held.
func (b Binding) Matches(ev KeyEvent) bool {
	return ev.Key == b.Key && ev.Mods == b.Mods
}

var modNames = map[string]Modifier{
	"CTRL":    ModCtrl,
	"CONTROL": ModCtrl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"META":    ModSuper,
	"SUPER":   ModSuper,
	"CMD":     ModSuper,
}

var knownKeys = buildKnownKeys()

func buildKnownKeys() map[string]struct{} {
	keys := []string{
		"SPACE", "TAB", "ENTER", "ESC", "BACKSPACE", "DELETE",
		"CAPSLOCK", "HOME", "END", "PAGEUP", "PAGEDOWN",
		"UP", "DOWN", "LEFT", "RIGHT",
	}
	m := make(map[string]struct{})
	for _, k := range keys {
		m[k] = struct{}{}
	}
	for i := 1; i <= 12; i++ {
		m[fmt.Sprintf("F%d", i)] = struct{}{}
	}
	for c := 'A'; c <= 'Z'; c++ {
		m[string(c)] = struct{}{}
	}
	for c := '0'; c <= '9'; c++ {
		m[string(c)] = struct{}{}
	}
	return m
}

// NormalizeKey canonicalizes a key name ("esc", "Escape" -> "ESC").
func NormalizeKey(name string) string {
	k := strings.ToUpper(strings.TrimSpace(name))
	switch k {
	case "ESCAPE":
		return "ESC"
	case "RETURN":
		return "ENTER"
	}
	return k
}

// Parse reads a binding from its human form, e.g. "F9", "CTRL+j",
// "CTRL+SHIFT+SPACE". Tokens before the last must be modifiers; the last
// token is the primary key. Modifier order is irrelevant.
func Parse(spec string, mode Mode) (Binding, error) {
	tokens := strings.Split(spec, "+")
	if len(tokens) == 0 || strings.TrimSpace(spec) == "" {
		return Binding{}, fmt.Errorf("empty key binding")
	}

	b := Binding{Mode: mode}
	for i, tok := range tokens {
		name := NormalizeKey(tok)
		if name == "" {
			return Binding{}, fmt.Errorf("invalid key binding %q", spec)
		}
		if i < len(tokens)-1 {
			mod, ok := modNames[name]
			if !ok {
				return Binding{}, fmt.Errorf("unknown modifier %q in binding %q", tok, spec)
			}
			if b.Mods.Has(mod) {
				return Binding{}, fmt.Errorf("duplicate modifier %q in binding %q", tok, spec)
			}
			b.Mods |= mod
			continue
		}
		if _, ok := knownKeys[name]; !ok {
			return Binding{}, fmt.Errorf("unknown key %q in binding %q", tok, spec)
		}
		b.Key = name
	}
	return b, nil
}

// KnownKeys lists every parseable primary key name, for diagnostics.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

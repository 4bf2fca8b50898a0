package output

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

// Dispatcher delivers a finished transcript to the desktop: clipboard,
// simulated typing, or both.
type Dispatcher struct {
	mode string
}

func New(mode string) (*Dispatcher, error) {
	switch mode {
	case "clipboard", "type", "both":
		return &Dispatcher{mode: mode}, nil
	}
	return nil, fmt.Errorf("unknown output mode %q (use clipboard, type or both)", mode)
}

func (d *Dispatcher) Mode() string { return d.mode }

func (d *Dispatcher) Dispatch(text string) error {
	if text == "" {
		return nil
	}
	if d.mode == "clipboard" || d.mode == "both" {
		if err := cb.WriteAll(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
	}
	if d.mode == "type" || d.mode == "both" {
		if err := Type(text); err != nil {
			return fmt.Errorf("typing text: %w", err)
		}
	}
	return nil
}

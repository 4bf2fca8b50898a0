//go:build darwin

package output

import "github.com/micmonay/keybd_event"

// Cmd+V on macOS.
func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(true)
}

func clearPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(false)
}

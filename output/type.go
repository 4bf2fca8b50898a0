package output

import (
	"sync"
	"unicode"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func initKeyboard() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

var letterKeys = map[rune]int{
	'a': keybd_event.VK_A, 'b': keybd_event.VK_B, 'c': keybd_event.VK_C,
	'd': keybd_event.VK_D, 'e': keybd_event.VK_E, 'f': keybd_event.VK_F,
	'g': keybd_event.VK_G, 'h': keybd_event.VK_H, 'i': keybd_event.VK_I,
	'j': keybd_event.VK_J, 'k': keybd_event.VK_K, 'l': keybd_event.VK_L,
	'm': keybd_event.VK_M, 'n': keybd_event.VK_N, 'o': keybd_event.VK_O,
	'p': keybd_event.VK_P, 'q': keybd_event.VK_Q, 'r': keybd_event.VK_R,
	's': keybd_event.VK_S, 't': keybd_event.VK_T, 'u': keybd_event.VK_U,
	'v': keybd_event.VK_V, 'w': keybd_event.VK_W, 'x': keybd_event.VK_X,
	'y': keybd_event.VK_Y, 'z': keybd_event.VK_Z,
}

var digitKeys = map[rune]int{
	'0': keybd_event.VK_0, '1': keybd_event.VK_1, '2': keybd_event.VK_2,
	'3': keybd_event.VK_3, '4': keybd_event.VK_4, '5': keybd_event.VK_5,
	'6': keybd_event.VK_6, '7': keybd_event.VK_7, '8': keybd_event.VK_8,
	'9': keybd_event.VK_9,
}

func runeKey(r rune) (code int, shift bool, ok bool) {
	if code, ok := letterKeys[unicode.ToLower(r)]; ok {
		return code, unicode.IsUpper(r), true
	}
	if code, ok := digitKeys[r]; ok {
		return code, false, true
	}
	switch r {
	case ' ':
		return keybd_event.VK_SPACE, false, true
	case '\n':
		return keybd_event.VK_ENTER, false, true
	case '\t':
		return keybd_event.VK_TAB, false, true
	}
	return 0, false, false
}

func typeable(text string) bool {
	for _, r := range text {
		if _, _, ok := runeKey(r); !ok {
			return false
		}
	}
	return true
}

// Type emits the transcript as keystrokes. Text containing runes with no
// direct key mapping (punctuation, non-ASCII) goes through the clipboard
// and a paste chord instead, which handles any content the compositor can.
func Type(text string) error {
	if err := initKeyboard(); err != nil {
		return err
	}
	if !typeable(text) {
		return pasteViaClipboard(text)
	}
	clearPasteModifier(&kb)
	for _, r := range text {
		code, shift, _ := runeKey(r)
		kb.SetKeys(code)
		kb.HasSHIFT(shift)
		if err := kb.Launching(); err != nil {
			return err
		}
	}
	return nil
}

func pasteViaClipboard(text string) error {
	if err := cb.WriteAll(text); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSHIFT(false)
	setPasteModifier(&kb)
	return kb.Launching()
}

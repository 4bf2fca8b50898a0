package hotkey

// Listener delivers the raw keyboard stream. The platform implementation
// sits on a global hook; the fake drives tests and the scripted test mode.
type Listener interface {
	Start() error
	Stop()
	Events() <-chan KeyEvent
}

// FakeListener is a channel-driven Listener for tests.
type FakeListener struct {
	events chan KeyEvent
}

func NewFake() *FakeListener {
	return &FakeListener{events: make(chan KeyEvent, 16)}
}

func (f *FakeListener) Start() error            { return nil }
func (f *FakeListener) Stop()                   {}
func (f *FakeListener) Events() <-chan KeyEvent { return f.events }

// SimKey injects a key-down or key-up with the given modifier state.
func (f *FakeListener) SimKey(down bool, key string, mods Modifier) {
	f.events <- KeyEvent{Down: down, Key: NormalizeKey(key), Mods: mods}
}

// SimPress injects a down+up pair with no modifiers.
func (f *FakeListener) SimPress(key string) {
	f.SimKey(true, key, 0)
	f.SimKey(false, key, 0)
}

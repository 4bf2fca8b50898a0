//go:build linux

package output

import "os/exec"

// Notify shows a desktop notification, best effort. A missing notify-send
// is not an error worth surfacing.
func Notify(summary, body string) {
	exec.Command("notify-send", "-a", "murmur", summary, body).Run()
}

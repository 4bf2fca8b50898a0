//go:build !linux

package output

func Notify(summary, body string) {}

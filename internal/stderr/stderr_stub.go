//go:build !linux

// Package stderr is a no-op off Linux; the fd 2 noise it captures
// comes from ALSA.
package stderr

import "os"

// Messages receives captured stderr lines. Never written off Linux.
var Messages = make(chan string, 100)

// Start is a no-op off Linux.
func Start() error { return nil }

// WriteOriginal writes to stderr.
func WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop is a no-op off Linux.
func Stop() {}

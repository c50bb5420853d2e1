//go:build linux

// Package stderr captures output from C libraries (ALSA, PortAudio)
// that write directly to file descriptor 2, bypassing os.Stderr. ALSA
// in particular prints configuration warnings on every device probe,
// which would otherwise interleave with the program's own output.
package stderr

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Messages receives captured stderr lines. Sends are best-effort; the
// channel drops lines when nobody drains it.
var Messages = make(chan string, 100)

var (
	origStderr int
	pipeRead   *os.File
	pipeWrite  *os.File
	started    bool
)

// Start redirects fd 2 into a pipe and forwards captured lines to
// Messages. Call it before initializing any audio library. Failure to
// set up the capture is not fatal; output simply stays on the original
// stderr.
func Start() error {
	if started {
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}

	origStderr, err = unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return err
	}

	if err := unix.Dup3(int(w.Fd()), int(os.Stderr.Fd()), 0); err != nil {
		unix.Close(origStderr)
		r.Close()
		w.Close()
		return err
	}

	pipeRead = r
	pipeWrite = w
	started = true

	go func() {
		scanner := bufio.NewScanner(pipeRead)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case Messages <- line:
			default:
			}
		}
	}()

	return nil
}

// WriteOriginal writes directly to the saved stderr, bypassing the
// capture. For output that must reach the terminal regardless.
func WriteOriginal(msg string) {
	if origStderr > 0 {
		_, _ = unix.Write(origStderr, []byte(msg))
	}
}

// Stop restores the original stderr and closes the capture pipe.
func Stop() {
	if !started {
		return
	}

	_ = unix.Dup3(origStderr, int(os.Stderr.Fd()), 0)
	_ = unix.Close(origStderr)

	pipeWrite.Close()
	pipeRead.Close()

	close(Messages)
	started = false
}

// Package sink owns the audio output device. A Sink drains a FIFO of
// decoded sample sources into a PortAudio output stream and is the
// swappable half of the engine's device/sink slot: sinks are reference
// counted, never mutated in place, and a replaced sink keeps playing
// for any session that still holds a reference until that reference is
// released.
package sink

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// Interface is the output contract the playback engine drives. It
// exists for dependency injection and testing.
type Interface interface {
	// Append queues a source behind whatever is currently playing.
	Append(src beep.Streamer, format beep.Format)
	// Play resumes output after a pause.
	Play()
	// Pause holds output; the current source keeps its position.
	Pause()
	IsPaused() bool
	// Stop discards everything queued, unblocking any Wait caller.
	Stop()
	// Clear discards queued-but-unplayed content.
	Clear()
	// Wait blocks until the queue has fully drained. This is the only
	// blocking operation; it runs exclusively on session goroutines.
	Wait()
	SetVolume(gain float64)
	Volume() float64
	// Seek moves the current source position by delta. It fails when
	// the source is not seekable.
	Seek(delta time.Duration) error
	Position() time.Duration
	// Acquire and Release manage the sink's reference count; the final
	// Release closes the output stream.
	Acquire()
	Release()
}

// Compile-time checks.
var (
	_ Interface = (*Sink)(nil)
	_ Interface = (*Mock)(nil)
)

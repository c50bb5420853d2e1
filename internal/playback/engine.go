// Package playback is the orchestration engine: the single authority
// over what is currently playing, the output device, the file queue
// and its cursor, and mute/volume state. It multiplexes three source
// kinds (local files, one network stream, CD track sequences) onto a
// single output sink and publishes state transitions and now-playing
// metadata over two best-effort channels.
package playback

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spindleaudio/spindle/internal/cdrom"
	"github.com/spindleaudio/spindle/internal/decode"
	"github.com/spindleaudio/spindle/internal/sink"
)

// seekStep is the forward/rewind increment.
const seekStep = 5 * time.Second

// Cancellation is cooperative, there is no hard-cancel primitive. The
// session field is a generation counter: a session loop re-validates
// its own generation under the mutex before every iteration, so a
// superseded session exits after its current blocking call returns no
// matter what the shared cursor holds by then.

type sinkFactory func(device string) (sink.Interface, error)

type fileDecoder func(path string) (beep.StreamSeekCloser, beep.Format, error)

// trackStreamer is what a disc track opener produces: a sample source
// that knows its own format.
type trackStreamer interface {
	beep.Streamer
	Format() beep.Format
	Close() error
}

type trackOpener func(device string, track cdrom.TrackInfo) (trackStreamer, error)

// Engine owns the swappable device/sink slot and the play queue.
// Command methods never block; the only blocking call (waiting for the
// sink to drain) lives inside session goroutines.
type Engine struct {
	log *zap.Logger

	newSink   sinkFactory
	decode    fileDecoder
	openTrack trackOpener

	mu      sync.Mutex
	out     sink.Interface
	queue   []Item
	cursor  int
	muteVol float64
	active  bool
	session int

	titleCh chan TitleChanged
	stateCh chan State
}

// New builds an engine with its sink opened on the named output
// device ("" or "Default" for the system default). PortAudio must have
// been initialized by the caller.
func New(device string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	factory := func(name string) (sink.Interface, error) {
		s, err := sink.Open(name, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	e, err := newEngine(device, factory, log)
	if err != nil {
		return nil, err
	}
	e.decode = decode.File
	e.openTrack = func(dev string, track cdrom.TrackInfo) (trackStreamer, error) {
		src, err := cdrom.OpenTrack(dev, track, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return e, nil
}

// newEngine wires an engine around a sink factory. Tests inject mocks
// here and fill the decoder and track opener themselves.
func newEngine(device string, factory sinkFactory, log *zap.Logger) (*Engine, error) {
	out, err := factory(device)
	if err != nil {
		return nil, err
	}
	return &Engine{
		log:     log,
		newSink: factory,
		out:     out,
		titleCh: make(chan TitleChanged, eventBufferSize),
		stateCh: make(chan State, eventBufferSize),
	}, nil
}

// Close stops playback and releases the engine's sink reference. A
// session still holding the sink keeps it alive until it exits.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.session++
	out := e.out
	e.mu.Unlock()
	out.Stop()
	out.Release()
	return nil
}

func (e *Engine) output() sink.Interface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out
}

// Append adds items to the end of the file queue. No playback side
// effect.
func (e *Engine) Append(items ...Item) {
	e.mu.Lock()
	e.queue = append(e.queue, items...)
	e.mu.Unlock()
}

// Queue returns a copy of the file queue.
func (e *Engine) Queue() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]Item, len(e.queue))
	copy(items, e.queue)
	return items
}

// Play resumes a paused sink, or starts a session walking the file
// queue from the current cursor when nothing is running.
func (e *Engine) Play() {
	e.mu.Lock()
	out := e.out
	if out.IsPaused() {
		out.Play()
		e.mu.Unlock()
		e.sendState(StatePlaying)
		return
	}
	if e.active {
		e.mu.Unlock()
		return
	}
	e.active = true
	e.session++
	id := e.session
	e.mu.Unlock()

	go e.fileSession(id, out)
}

// PlayCD stops any current playback and starts a session over the
// audio tracks of the supplied list, beginning at startIndex (an index
// into the audio-only subset).
func (e *Engine) PlayCD(device string, tracks []cdrom.TrackInfo, startIndex int) {
	audio := lo.Filter(tracks, func(t cdrom.TrackInfo, _ int) bool {
		return t.IsAudio
	})

	out := e.supersede()
	e.mu.Lock()
	e.cursor = startIndex
	e.active = true
	e.session++
	id := e.session
	e.mu.Unlock()

	go e.cdSession(id, out, device, audio)
}

// PlayStream stops any current playback and starts a session playing
// the network stream at url. icon is carried into TitleChanged events
// for the listener's display.
func (e *Engine) PlayStream(url, icon string) {
	out := e.supersede()
	e.mu.Lock()
	e.active = true
	e.session++
	id := e.session
	e.mu.Unlock()

	go e.streamSession(id, out, url, icon)
}

// supersede cancels whatever session is running: bumped generation,
// empty queue, force-stopped sink. The generation is bumped before the
// stop wakes the old session, so it cannot observe the cursor the
// caller re-arms for its replacement. It does not wait for the old
// goroutine to exit.
func (e *Engine) supersede() sink.Interface {
	e.mu.Lock()
	e.session++
	e.queue = nil
	e.cursor = 0
	out := e.out
	e.mu.Unlock()
	out.Stop()
	return out
}

// Stop cancels the running session and force-stops the sink. The
// cursor parks at the end of the queue, so items appended afterwards
// play on the next Play without a Clear in between.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.session++
	e.active = false
	e.cursor = len(e.queue)
	out := e.out
	e.mu.Unlock()
	out.Stop()
	e.sendState(StateStopped)
}

// Pause toggles the sink's paused flag.
func (e *Engine) Pause() {
	out := e.output()
	if out.IsPaused() {
		out.Play()
		e.sendState(StatePlaying)
		return
	}
	out.Pause()
	e.sendState(StatePaused)
}

// Clear empties the file queue, resets the cursor and drops any
// queued-but-unplayed sink content.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.queue = nil
	e.cursor = 0
	out := e.out
	e.mu.Unlock()
	out.Clear()
}

// SkipNext force-stops the sink so the session loop advances to the
// next item, or exits if there is none.
func (e *Engine) SkipNext() {
	e.output().Stop()
}

// SkipPrevious moves the session back one item. The cursor goes back
// two: one to undo the advance already made for the current item, one
// to reach the previous item. Clamped at zero, so "previous" on the
// first item restarts it.
func (e *Engine) SkipPrevious() {
	e.mu.Lock()
	e.cursor -= 2
	if e.cursor < 0 {
		e.cursor = 0
	}
	out := e.out
	e.mu.Unlock()
	out.Stop()
}

// Forward seeks the current source ahead by five seconds. Failures
// (non-seekable source, nothing playing) are logged, not surfaced.
func (e *Engine) Forward() {
	if err := e.output().Seek(seekStep); err != nil {
		e.log.Debug("playback: seek forward failed", zap.Error(err))
	}
}

// Rewind seeks back by five seconds, guarded so it never requests a
// position before zero.
func (e *Engine) Rewind() {
	out := e.output()
	if out.Position() < seekStep {
		return
	}
	if err := out.Seek(-seekStep); err != nil {
		e.log.Debug("playback: seek back failed", zap.Error(err))
	}
}

// Volume sets the sink gain. The engine passes the value through
// unclamped; 0.0 to 1.0 is the nominal range.
func (e *Engine) Volume(level float64) {
	e.output().SetVolume(level)
}

// GetVolume returns the sink gain.
func (e *Engine) GetVolume() float64 {
	return e.output().Volume()
}

// Mute toggles between silence and the last non-zero gain.
func (e *Engine) Mute() {
	e.mu.Lock()
	out := e.out
	if v := out.Volume(); v != 0 {
		e.muteVol = v
		out.SetVolume(0)
		e.mu.Unlock()
		e.sendState(StateMuted)
		return
	}
	out.SetVolume(e.muteVol)
	e.muteVol = 0
	e.mu.Unlock()
	e.sendState(StateUnmuted)
}

// SwitchDevice replaces the device/sink slot with a sink on the named
// output, preserving the current volume. An unknown or unopenable name
// falls back to the system default. The old sink is released once its
// last holder (possibly a finishing session) drops it.
func (e *Engine) SwitchDevice(name string) {
	e.mu.Lock()
	old := e.out
	vol := old.Volume()
	e.session++
	e.active = false
	e.queue = nil
	e.mu.Unlock()
	old.Stop()

	next, err := e.newSink(name)
	if err != nil {
		e.log.Warn("playback: output device unavailable, using default",
			zap.String("device", name), zap.Error(err))
		next, err = e.newSink(sink.DefaultDevice)
		if err != nil {
			e.log.Error("playback: cannot open default output", zap.Error(err))
			return
		}
	}
	next.SetVolume(vol)

	e.mu.Lock()
	e.cursor = 0
	e.out = next
	e.mu.Unlock()
	old.Release()
}

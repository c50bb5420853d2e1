package sink

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// sampleRate is the fixed output rate. Sources at other rates are
// resampled on Append.
const sampleRate = 44100

const framesPerBuffer = 1024

// ErrNotSeekable is returned by Seek when the current source does not
// support seeking (CD tracks, network streams).
var ErrNotSeekable = errors.New("sink: current source is not seekable")

// entry is one queued source. seeker is nil for non-seekable sources;
// format is the source's native format, used to convert seek deltas.
type entry struct {
	src    beep.Streamer
	seeker beep.StreamSeeker
	format beep.Format
}

// Sink is the PortAudio-backed output. The stream's pull callback
// drains queued sources, applies the gain and writes silence while
// paused or empty. All methods are safe for concurrent use.
type Sink struct {
	mu   sync.Mutex
	cond *sync.Cond // broadcast when the queue drains or is cleared

	stream *portaudio.Stream
	device string
	log    *zap.Logger

	queue  []*entry
	paused bool
	gain   float64

	refs   int32
	closed bool

	scratch [][2]float64
}

// Open opens a sink on the named output device, falling back to the
// system default when name is empty or "Default". PortAudio must have
// been initialized by the caller.
func Open(device string, log *zap.Logger) (*Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sink{
		device:  device,
		log:     log,
		gain:    1.0,
		refs:    1,
		scratch: make([][2]float64, framesPerBuffer),
	}
	s.cond = sync.NewCond(&s.mu)

	dev, err := outputDevice(device)
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = 2
	params.SampleRate = sampleRate
	params.FramesPerBuffer = framesPerBuffer

	stream, err := portaudio.OpenStream(params, s.pull)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	s.stream = stream
	log.Debug("sink: output opened", zap.String("device", dev.Name))
	return s, nil
}

// newSink builds a Sink without an output stream, for tests.
func newSink(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sink{
		log:     log,
		gain:    1.0,
		refs:    1,
		scratch: make([][2]float64, framesPerBuffer),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// pull is the PortAudio callback. out is interleaved stereo. The
// control mutex is never held across the source's Stream call: a
// source stalled on a network read must not freeze Stop, Pause or the
// volume controls. PortAudio invokes the callback serially, so the
// scratch buffer needs no lock of its own.
func (s *Sink) pull(out []float32) {
	frames := len(out) / 2
	filled := 0

	for filled < frames {
		s.mu.Lock()
		if s.paused || len(s.queue) == 0 {
			s.mu.Unlock()
			break
		}
		head := s.queue[0]
		s.mu.Unlock()

		want := frames - filled
		if want > len(s.scratch) {
			want = len(s.scratch)
		}
		n, ok := head.src.Stream(s.scratch[:want])

		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0] != head {
			// Stopped or cleared while streaming; the samples belong
			// to a discarded source.
			s.mu.Unlock()
			break
		}
		gain := s.gain
		if gain < 0 {
			gain = 0
		}
		for i := 0; i < n; i++ {
			out[(filled+i)*2] = float32(s.scratch[i][0] * gain)
			out[(filled+i)*2+1] = float32(s.scratch[i][1] * gain)
		}
		filled += n

		if !ok {
			if err := head.src.Err(); err != nil {
				s.log.Warn("sink: source ended with error", zap.Error(err))
			}
			s.queue = s.queue[1:]
			if len(s.queue) == 0 {
				s.cond.Broadcast()
			}
		}
		s.mu.Unlock()
	}

	for i := filled * 2; i < len(out); i++ {
		out[i] = 0
	}
}

// Append queues a source. Sources whose sample rate differs from the
// output rate are wrapped in a resampler; seekability is preserved by
// keeping the original streamer for position arithmetic.
func (s *Sink) Append(src beep.Streamer, format beep.Format) {
	e := &entry{src: src, format: format}
	if seeker, ok := src.(beep.StreamSeeker); ok {
		e.seeker = seeker
	}
	if format.SampleRate != sampleRate {
		e.src = beep.Resample(4, format.SampleRate, sampleRate, src)
	}

	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
}

// Play resumes a paused sink.
func (s *Sink) Play() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Pause holds output without consuming the current source.
func (s *Sink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// IsPaused reports whether the sink is paused.
func (s *Sink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Stop discards the whole queue, current source included, and wakes
// every Wait caller. The sink stays usable for the next Append.
func (s *Sink) Stop() {
	s.mu.Lock()
	s.queue = nil
	s.paused = false
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Clear discards the queue like Stop. Kept as a distinct operation to
// match the engine's clear semantics.
func (s *Sink) Clear() {
	s.Stop()
}

// Wait blocks until the queue has fully drained, or until Stop/Clear
// empties it, or the sink is closed.
func (s *Sink) Wait() {
	s.mu.Lock()
	for len(s.queue) > 0 && !s.closed {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// SetVolume sets the output gain. The engine passes the value through
// unclamped; negative values are treated as silence at the output
// multiply only, so Volume round-trips exactly.
func (s *Sink) SetVolume(gain float64) {
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
}

// Volume returns the current gain.
func (s *Sink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

// Seek moves the current source by delta, clamped to the source range.
func (s *Sink) Seek(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return ErrNotSeekable
	}
	head := s.queue[0]
	if head.seeker == nil {
		return ErrNotSeekable
	}

	pos := head.seeker.Position() + head.format.SampleRate.N(delta)
	if pos < 0 {
		pos = 0
	}
	if max := head.seeker.Len(); pos > max {
		pos = max
	}
	return head.seeker.Seek(pos)
}

// Position returns the current source position, or zero when nothing
// is playing or the source cannot report one.
func (s *Sink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.queue[0].seeker == nil {
		return 0
	}
	head := s.queue[0]
	return head.format.SampleRate.D(head.seeker.Position())
}

// Acquire adds a reference. Session goroutines acquire the sink before
// use so a device switch cannot close it out from under them.
func (s *Sink) Acquire() {
	atomic.AddInt32(&s.refs, 1)
}

// Release drops a reference; the final release closes the output
// stream.
func (s *Sink) Release() {
	if atomic.AddInt32(&s.refs, -1) > 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.cond.Broadcast()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			s.log.Debug("sink: stream stop failed", zap.Error(err))
		}
		if err := stream.Close(); err != nil {
			s.log.Debug("sink: stream close failed", zap.Error(err))
		}
	}
	s.log.Debug("sink: released", zap.String("device", s.device))
}

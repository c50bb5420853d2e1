package sink

import (
	"errors"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

// tone streams a constant value for a fixed number of frames.
type tone struct {
	remaining int
	value     float64
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) && t.remaining > 0 {
		samples[n][0] = t.value
		samples[n][1] = t.value
		t.remaining--
		n++
	}
	return n, n > 0
}

func (t *tone) Err() error { return nil }

// seekableTone adds StreamSeeker on top of tone.
type seekableTone struct {
	tone
	length int
	pos    int
}

func (t *seekableTone) Len() int      { return t.length }
func (t *seekableTone) Position() int { return t.pos }
func (t *seekableTone) Seek(p int) error {
	if p < 0 || p > t.length {
		return errors.New("out of range")
	}
	t.pos = p
	return nil
}

func cdFormat() beep.Format {
	return beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
}

func TestSink_PullAppliesGain(t *testing.T) {
	s := newSink(nil)
	s.Append(&tone{remaining: 10, value: 0.5}, cdFormat())
	s.SetVolume(0.5)

	out := make([]float32, 20)
	s.pull(out)

	for i := 0; i < 20; i++ {
		if out[i] != 0.25 {
			t.Fatalf("out[%d] = %v, want 0.25", i, out[i])
		}
	}
}

func TestSink_PullSilenceWhenPaused(t *testing.T) {
	s := newSink(nil)
	src := &tone{remaining: 10, value: 0.5}
	s.Append(src, cdFormat())
	s.Pause()

	out := make([]float32, 8)
	s.pull(out)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want silence while paused", i, v)
		}
	}
	if src.remaining != 10 {
		t.Errorf("paused pull consumed %d frames from the source", 10-src.remaining)
	}
}

func TestSink_PullAdvancesQueue(t *testing.T) {
	s := newSink(nil)
	s.Append(&tone{remaining: 3, value: 0.1}, cdFormat())
	s.Append(&tone{remaining: 3, value: 0.2}, cdFormat())

	out := make([]float32, 12) // 6 frames: 3 from each source
	s.pull(out)

	wants := []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.2, 0.2, 0.2, 0.2, 0.2, 0.2}
	for i, want := range wants {
		if out[i] != want {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	if len(s.queue) != 0 {
		t.Errorf("queue length = %d after drain, want 0", len(s.queue))
	}
}

func TestSink_NegativeGainIsSilentButRoundTrips(t *testing.T) {
	s := newSink(nil)
	s.Append(&tone{remaining: 4, value: 1.0}, cdFormat())
	s.SetVolume(-0.3)

	out := make([]float32, 8)
	s.pull(out)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0 for negative gain", i, v)
		}
	}
	if got := s.Volume(); got != -0.3 {
		t.Errorf("Volume() = %v, want the stored -0.3", got)
	}
}

func TestSink_WaitUnblocksOnDrain(t *testing.T) {
	s := newSink(nil)
	s.Append(&tone{remaining: 5, value: 0.1}, cdFormat())

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait() returned while the queue was non-empty")
	case <-time.After(20 * time.Millisecond):
	}

	s.pull(make([]float32, 16))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after the queue drained")
	}
}

func TestSink_StopUnblocksWait(t *testing.T) {
	s := newSink(nil)
	s.Append(&tone{remaining: 1 << 30, value: 0.1}, cdFormat())

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Stop()")
	}
}

// stalledTone blocks inside Stream until released, like a radio source
// waiting on a dead network read.
type stalledTone struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stalledTone) Stream(samples [][2]float64) (int, bool) {
	close(s.entered)
	<-s.release
	return len(samples), true
}

func (s *stalledTone) Err() error { return nil }

func TestSink_ControlsNotBlockedByStalledSource(t *testing.T) {
	s := newSink(nil)
	src := &stalledTone{entered: make(chan struct{}), release: make(chan struct{})}
	s.Append(src, cdFormat())

	pulled := make(chan struct{})
	go func() {
		s.pull(make([]float32, 16))
		close(pulled)
	}()
	<-src.entered

	controls := make(chan struct{})
	go func() {
		s.SetVolume(0.5)
		s.Pause()
		s.Stop()
		close(controls)
	}()
	select {
	case <-controls:
	case <-time.After(time.Second):
		t.Fatal("control calls blocked behind a stalled source")
	}

	close(src.release)
	select {
	case <-pulled:
	case <-time.After(time.Second):
		t.Fatal("pull did not return after the source unblocked")
	}
	if got := s.Volume(); got != 0.5 {
		t.Errorf("Volume() = %v, want 0.5", got)
	}
}

func TestSink_PullDropsSamplesStoppedMidStream(t *testing.T) {
	s := newSink(nil)
	src := &stalledTone{entered: make(chan struct{}), release: make(chan struct{})}
	s.Append(src, cdFormat())

	out := make([]float32, 16)
	pulled := make(chan struct{})
	go func() {
		s.pull(out)
		close(pulled)
	}()
	<-src.entered

	s.Stop()
	close(src.release)
	<-pulled

	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want silence for a source discarded mid-stream", i, v)
		}
	}
}

func TestSink_SeekRequiresSeekableSource(t *testing.T) {
	s := newSink(nil)

	if err := s.Seek(5 * time.Second); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek() on empty sink = %v, want ErrNotSeekable", err)
	}

	s.Append(&tone{remaining: 100, value: 0}, cdFormat())
	if err := s.Seek(5 * time.Second); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek() on non-seekable source = %v, want ErrNotSeekable", err)
	}
}

func TestSink_SeekClampsToRange(t *testing.T) {
	s := newSink(nil)
	src := &seekableTone{length: 44100 * 60, pos: 44100} // 1s into a 60s track
	s.Append(src, cdFormat())

	// Rewind past the start clamps to 0.
	if err := s.Seek(-5 * time.Second); err != nil {
		t.Fatalf("Seek(-5s) error: %v", err)
	}
	if src.pos != 0 {
		t.Errorf("position after rewind = %d, want 0", src.pos)
	}

	// Forward past the end clamps to the length.
	if err := s.Seek(2 * time.Hour); err != nil {
		t.Fatalf("Seek(+2h) error: %v", err)
	}
	if src.pos != src.length {
		t.Errorf("position after forward = %d, want %d", src.pos, src.length)
	}
}

func TestSink_Position(t *testing.T) {
	s := newSink(nil)
	if got := s.Position(); got != 0 {
		t.Errorf("Position() on empty sink = %v, want 0", got)
	}

	src := &seekableTone{length: 44100 * 60, pos: 44100 * 3}
	s.Append(src, cdFormat())
	if got := s.Position(); got != 3*time.Second {
		t.Errorf("Position() = %v, want 3s", got)
	}
}

func TestSink_ReleaseClosesAndUnblocksWait(t *testing.T) {
	s := newSink(nil)
	s.Acquire() // refs = 2
	s.Append(&tone{remaining: 1 << 30, value: 0}, cdFormat())

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	s.Release() // refs = 1, still open
	select {
	case <-done:
		t.Fatal("Wait() returned before the final release")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release() // final
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after the final Release()")
	}
	if !s.closed {
		t.Error("sink not marked closed after final Release()")
	}
}

package sink

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Mock is a test double for Interface. By default Wait returns
// immediately, so session loops advance through the queue without real
// playback; SetBlockingWait makes Wait block until Stop or Clear, for
// tests that exercise the stop/skip paths.
type Mock struct {
	mu sync.Mutex

	appends  []beep.Streamer
	formats  []beep.Format
	paused   bool
	gain     float64
	stops    int
	clears   int
	plays    int
	seeks    []time.Duration
	seekErr  error
	position time.Duration

	acquires int
	releases int

	blocking bool
	waitCh   chan struct{}
}

// NewMock creates a mock sink with unit gain.
func NewMock() *Mock {
	return &Mock{gain: 1.0}
}

func (m *Mock) Append(src beep.Streamer, format beep.Format) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends = append(m.appends, src)
	m.formats = append(m.formats, format)
	if m.blocking && m.waitCh == nil {
		m.waitCh = make(chan struct{})
	}
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	m.paused = false
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *Mock) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.paused = false
	if m.waitCh != nil {
		close(m.waitCh)
		m.waitCh = nil
	}
}

func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.waitCh != nil {
		close(m.waitCh)
		m.waitCh = nil
	}
}

func (m *Mock) Wait() {
	m.mu.Lock()
	ch := m.waitCh
	m.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (m *Mock) SetVolume(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = gain
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

func (m *Mock) Seek(delta time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, delta)
	return m.seekErr
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Acquire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
}

func (m *Mock) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

// Test helpers

// SetBlockingWait makes subsequent Wait calls block until Stop/Clear.
func (m *Mock) SetBlockingWait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocking = true
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) SetSeekError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekErr = err
}

func (m *Mock) Appends() []beep.Streamer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]beep.Streamer(nil), m.appends...)
}

func (m *Mock) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *Mock) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

func (m *Mock) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

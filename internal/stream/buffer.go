package stream

import (
	"io"
	"sync"
)

// DefaultCapacity is the bound on the in-memory buffer. Liberal enough
// to hold any reasonable prefetch budget, small enough that a fast
// server cannot grow memory without bound.
const DefaultCapacity = 512 * 1024

// chunkSize is the granularity of reads from the network.
const chunkSize = 16 * 1024

// BoundedBuffer decouples network arrival rate from playback
// consumption rate. A worker goroutine reads from the source into a
// bounded chunk queue; when the queue is full the worker blocks, which
// backpressures the connection. Read blocks until data arrives.
type BoundedBuffer struct {
	src    io.ReadCloser
	chunks chan []byte

	current []byte

	mu      sync.Mutex
	readErr error

	closed    chan struct{}
	closeOnce sync.Once
}

// NewBoundedBuffer wraps src with a buffer holding at most capacity
// bytes. It synchronously prefetches up to prefetch bytes (clamped to
// the capacity) before returning, so playback starts with a cushion
// against network jitter.
func NewBoundedBuffer(src io.ReadCloser, capacity, prefetch int) *BoundedBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	slots := capacity / chunkSize
	if slots < 1 {
		slots = 1
	}
	if prefetch > capacity {
		prefetch = capacity
	}

	b := &BoundedBuffer{
		src:    src,
		chunks: make(chan []byte, slots),
		closed: make(chan struct{}),
	}

	prefetched := 0
	for prefetched < prefetch && len(b.chunks) < cap(b.chunks) {
		chunk := make([]byte, chunkSize)
		n, err := src.Read(chunk)
		if n > 0 {
			b.chunks <- chunk[:n]
			prefetched += n
		}
		if err != nil {
			b.setErr(err)
			close(b.chunks)
			return b
		}
	}

	go b.fill()
	return b
}

func (b *BoundedBuffer) fill() {
	defer close(b.chunks)
	for {
		chunk := make([]byte, chunkSize)
		n, err := b.src.Read(chunk)
		if n > 0 {
			select {
			case b.chunks <- chunk[:n]:
			case <-b.closed:
				return
			}
		}
		if err != nil {
			b.setErr(err)
			return
		}
	}
}

func (b *BoundedBuffer) setErr(err error) {
	b.mu.Lock()
	b.readErr = err
	b.mu.Unlock()
}

// Read returns buffered bytes, blocking until some arrive. Once the
// source is exhausted it returns the source's error (io.EOF on a clean
// end).
func (b *BoundedBuffer) Read(p []byte) (int, error) {
	for len(b.current) == 0 {
		chunk, ok := <-b.chunks
		if !ok {
			b.mu.Lock()
			err := b.readErr
			b.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		b.current = chunk
	}

	n := copy(p, b.current)
	b.current = b.current[n:]
	return n, nil
}

// Close stops the worker and closes the underlying source.
func (b *BoundedBuffer) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		err = b.src.Close()
	})
	return err
}

package stream

import (
	"fmt"
	"io"
	"strings"
)

// ICY in-band metadata framing: every MetadataInterval audio bytes the
// server inserts one length byte (×16 gives the block size) followed
// by that many bytes of "key='value';" pairs, zero-padded. A length
// byte of zero means no update.

// MetadataReader strips ICY metadata blocks out of a byte stream,
// handing pure audio to its consumer and invoking a callback with the
// StreamTitle value of every non-empty metadata block. With a zero or
// negative interval it degrades to a transparent passthrough.
type MetadataReader struct {
	r        io.Reader
	interval int
	callback func(streamTitle string)

	remaining int // audio bytes until the next metadata block
	metaBuf   []byte
}

// NewMetadataReader wraps r. interval is the icy-metaint header value;
// callback may be nil.
func NewMetadataReader(r io.Reader, interval int, callback func(streamTitle string)) *MetadataReader {
	return &MetadataReader{
		r:         r,
		interval:  interval,
		callback:  callback,
		remaining: interval,
		metaBuf:   make([]byte, 255*16),
	}
}

func (m *MetadataReader) Read(p []byte) (int, error) {
	if m.interval <= 0 {
		return m.r.Read(p)
	}

	if m.remaining == 0 {
		if err := m.readMetadataBlock(); err != nil {
			return 0, err
		}
		m.remaining = m.interval
	}

	if len(p) > m.remaining {
		p = p[:m.remaining]
	}
	n, err := m.r.Read(p)
	m.remaining -= n
	return n, err
}

func (m *MetadataReader) readMetadataBlock() error {
	var lengthByte [1]byte
	if _, err := io.ReadFull(m.r, lengthByte[:]); err != nil {
		return err
	}
	blockLen := int(lengthByte[0]) * 16
	if blockLen == 0 {
		return nil
	}

	if _, err := io.ReadFull(m.r, m.metaBuf[:blockLen]); err != nil {
		return fmt.Errorf("stream: truncated metadata block: %w", err)
	}

	if m.callback == nil {
		return nil
	}
	if title, ok := extractStreamTitle(string(m.metaBuf[:blockLen])); ok {
		m.callback(title)
	}
	return nil
}

// extractStreamTitle pulls the StreamTitle value out of a metadata
// block. Blocks are "StreamTitle='...';StreamUrl='...';" zero-padded.
func extractStreamTitle(block string) (string, bool) {
	const key = "StreamTitle='"
	start := strings.Index(block, key)
	if start < 0 {
		return "", false
	}
	rest := block[start+len(key):]

	end := strings.Index(rest, "';")
	if end < 0 {
		// Tolerate a missing terminator on the last pair.
		end = strings.IndexByte(rest, 0)
		if end < 0 {
			end = len(rest)
		}
		rest = strings.TrimSuffix(rest[:end], "'")
		return rest, true
	}
	return rest[:end], true
}

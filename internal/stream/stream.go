// Package stream ingests network radio streams. It issues HTTP
// requests flagging interest in ICY in-band metadata, exposes the
// advertised stream headers, decouples network arrival from playback
// consumption with a bounded in-memory buffer, and extracts embedded
// now-playing metadata while passing audio bytes through untouched.
package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// defaultBitrate is assumed (in kbit/s) when the server does not
// advertise one.
const defaultBitrate = 256

// prefetchSeconds is how much audio the buffer holds before playback
// starts.
const prefetchSeconds = 5

// Headers carries the stream properties advertised in the HTTP
// response.
type Headers struct {
	// ContentType of the audio payload (e.g. audio/mpeg).
	ContentType string
	// Name is the station name (icy-name), if any.
	Name string
	// Bitrate in kbit/s (icy-br), 0 when not advertised.
	Bitrate int
	// MetadataInterval is the audio byte count between embedded
	// metadata blocks (icy-metaint), 0 when the stream carries none.
	MetadataInterval int
}

// PrefetchBytes derives the prefetch budget from the advertised
// bitrate: bitrate/8 kilobytes per second, five seconds buffered.
func (h Headers) PrefetchBytes() int {
	bitrate := h.Bitrate
	if bitrate <= 0 {
		bitrate = defaultBitrate
	}
	return bitrate / 8 * 1024 * prefetchSeconds
}

// Stream is an open network audio stream.
type Stream struct {
	// Body is the raw byte stream; the caller owns closing it.
	Body    io.ReadCloser
	Headers Headers
}

// Open issues the request and parses the stream headers. The request
// asks the server to interleave ICY metadata into the byte stream.
func Open(ctx context.Context, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: build request for %q: %w", url, err)
	}
	req.Header.Set("Icy-MetaData", "1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream: fetch %q: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("stream: fetch %q: unexpected status %s", url, resp.Status)
	}

	return &Stream{
		Body:    resp.Body,
		Headers: parseHeaders(resp.Header),
	}, nil
}

func parseHeaders(h http.Header) Headers {
	headers := Headers{
		ContentType: h.Get("Content-Type"),
		Name:        h.Get("Icy-Name"),
	}
	if br, err := strconv.Atoi(h.Get("Icy-Br")); err == nil {
		headers.Bitrate = br
	}
	if interval, err := strconv.Atoi(h.Get("Icy-Metaint")); err == nil {
		headers.MetadataInterval = interval
	}
	return headers
}

// Package decode bridges compressed audio to beep streamers. It
// covers the engine's two decoded source kinds: seekable local files
// (dispatched by extension) and network streams (dispatched by
// content type).
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extOGG  = ".ogg"
	extOGA  = ".oga"
	extWAV  = ".wav"
)

// File opens and decodes a local audio file into a seekable streamer.
// The caller owns the returned closer.
func File(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case extMP3, extFLAC, extOGG, extOGA, extWAV:
	default:
		return nil, beep.Format{}, fmt.Errorf("decode: unsupported format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case extMP3:
		streamer, format, err = decodeMP3(f, true)
	case extFLAC:
		// Some taggers prepend an ID3v2 tag to FLAC files, which the
		// FLAC decoder does not handle.
		if err := skipID3v2(f); err != nil {
			f.Close()
			return nil, beep.Format{}, err
		}
		streamer, format, err = flac.Decode(f)
	case extOGG, extOGA:
		streamer, format, err = vorbis.Decode(f)
	case extWAV:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}

// Stream decodes a network audio stream by content type. Radio streams
// are not seekable, so only a plain streamer comes back; closing it
// closes rc.
func Stream(contentType string, rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	switch {
	case strings.Contains(contentType, "ogg"):
		s, format, err := vorbis.Decode(rc)
		return s, format, err
	default:
		// MP3 is the dominant radio codec and the safe default when
		// the server does not advertise a content type.
		s, format, err := decodeMP3(rc, false)
		return s, format, err
	}
}

// skipID3v2 skips an ID3v2 tag if present at the start of r, leaving
// the reader positioned at the first post-tag byte.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := r.Read(header)
	if err != nil && err != io.EOF {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// The tag size is a syncsafe integer: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

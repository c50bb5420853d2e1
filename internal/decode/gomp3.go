package decode

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// bytesPerFrame is the decoder's output frame size: stereo 16-bit.
const bytesPerFrame = 4

// mp3Decoder wraps hajimehoshi/go-mp3 to implement
// beep.StreamSeekCloser. go-mp3 always outputs 16-bit stereo at the
// source sample rate.
type mp3Decoder struct {
	decoder  *mp3.Decoder
	closer   io.Closer
	format   beep.Format
	seekable bool
	pos      int // frames
	err      error
	readBuf  []byte
}

func decodeMP3(rc io.ReadCloser, seekable bool) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if decoder.SampleRate() == 0 {
		return nil, beep.Format{}, errors.New("decode: mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(decoder.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
	d := &mp3Decoder{
		decoder:  decoder,
		closer:   rc,
		format:   format,
		seekable: seekable,
		readBuf:  make([]byte, 8192),
	}
	return d, format, nil
}

func (d *mp3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}

	bytesNeeded := len(samples) * bytesPerFrame
	if len(d.readBuf) < bytesNeeded {
		d.readBuf = make([]byte, bytesNeeded)
	}

	bytesRead, err := io.ReadFull(d.decoder, d.readBuf[:bytesNeeded])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}

	frames := bytesRead / bytesPerFrame
	for i := 0; i < frames; i++ {
		offset := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(d.readBuf[offset:]))    //nolint:gosec // audio samples
		right := int16(binary.LittleEndian.Uint16(d.readBuf[offset+2:])) //nolint:gosec // audio samples
		samples[i][0] = float64(left) / 32768.0
		samples[i][1] = float64(right) / 32768.0
	}
	d.pos += frames
	return frames, frames > 0
}

func (d *mp3Decoder) Err() error { return d.err }

// Len returns the total number of frames, or 0 when the source is not
// seekable (live streams cannot report a length).
func (d *mp3Decoder) Len() int {
	if !d.seekable {
		return 0
	}
	length := d.decoder.Length()
	if length < 0 {
		return 0
	}
	return int(length / bytesPerFrame)
}

func (d *mp3Decoder) Position() int { return d.pos }

func (d *mp3Decoder) Seek(p int) error {
	if !d.seekable {
		return errors.New("decode: mp3: source is not seekable")
	}
	if p < 0 {
		p = 0
	}
	if length := d.Len(); p > length {
		p = length
	}
	if _, err := d.decoder.Seek(int64(p)*bytesPerFrame, io.SeekStart); err != nil {
		return err
	}
	d.pos = p
	d.err = nil
	return nil
}

func (d *mp3Decoder) Close() error {
	return d.closer.Close()
}

package cdrom

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"go.uber.org/zap"
)

// sectorReader abstracts the raw audio read so TrackSource can be
// tested without a drive. The real implementation is Device.
type sectorReader interface {
	readAudio(lba, nframes int32, buf []byte) error
}

// TrackSource streams decoded PCM for one CD track as a beep.Streamer.
//
// Audio CDs store 44.1 kHz signed 16-bit little-endian stereo PCM,
// which maps directly onto beep frames, so no resampling or
// transcoding is needed. Sectors are read in batches of 25 (about a
// third of a second) into a pre-sized scratch buffer, so steady-state
// playback performs no allocation.
//
// A failed sector read does not stop playback: the affected span is
// skipped and replaced with silence, and the sector cursor still
// advances so a scratched region cannot cause a retry loop.
type TrackSource struct {
	r      sectorReader
	closer io.Closer
	log    *zap.Logger

	currentLBA int32
	endLBA     int32

	raw    []byte  // reusable sector read buffer
	pcm    []int16 // decoded samples of the current batch
	pcmPos int     // read position within pcm, in samples

	totalFrames  int
	framesPlayed int

	err error
}

func newTrackSource(r sectorReader, closer io.Closer, startLBA, endLBA int32, log *zap.Logger) *TrackSource {
	if log == nil {
		log = zap.NewNop()
	}
	sectors := int(endLBA - startLBA)
	return &TrackSource{
		r:           r,
		closer:      closer,
		log:         log,
		currentLBA:  startLBA,
		endLBA:      endLBA,
		raw:         make([]byte, sectorsPerRead*SectorSize),
		pcm:         make([]int16, 0, sectorsPerRead*SamplesPerSector),
		totalFrames: sectors * SamplesPerSector / Channels,
	}
}

// Format returns the fixed CD-DA audio format.
func (s *TrackSource) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(SampleRate),
		NumChannels: Channels,
		Precision:   2,
	}
}

// TotalDuration returns the duration of the whole track, derived from
// its sector span.
func (s *TrackSource) TotalDuration() time.Duration {
	return time.Duration(float64(s.totalFrames) / SampleRate * float64(time.Second))
}

// Buffered returns the number of frames immediately available without
// touching the drive, or 0 when nothing is buffered. Downstream
// pipeline scheduling uses this as a readiness estimate.
func (s *TrackSource) Buffered() int {
	return (len(s.pcm) - s.pcmPos) / Channels
}

// Len returns the total track length in frames.
func (s *TrackSource) Len() int { return s.totalFrames }

// Position returns the number of frames streamed so far.
func (s *TrackSource) Position() int { return s.framesPlayed }

// Stream fills samples with decoded stereo frames normalized to
// [-1, 1]. It reports ok=false once exactly Len() frames have been
// produced.
func (s *TrackSource) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if s.framesPlayed >= s.totalFrames {
			break
		}
		if s.pcmPos >= len(s.pcm) {
			if !s.fill() {
				break
			}
		}
		left := s.pcm[s.pcmPos]
		right := s.pcm[s.pcmPos+1]
		samples[n][0] = float64(left) / 32768.0
		samples[n][1] = float64(right) / 32768.0
		s.pcmPos += Channels
		s.framesPlayed++
		n++
	}
	return n, n > 0
}

// Err returns the error that stopped streaming, if any. Sector read
// failures are recovered with silence and never surface here.
func (s *TrackSource) Err() error { return s.err }

// Close releases the underlying device handle.
func (s *TrackSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// fill reads the next batch of sectors from disc into the sample
// buffer. It returns false once the track range is exhausted.
func (s *TrackSource) fill() bool {
	if s.currentLBA >= s.endLBA {
		return false
	}

	sectors := s.endLBA - s.currentLBA
	if sectors > sectorsPerRead {
		sectors = sectorsPerRead
	}
	byteCount := int(sectors) * SectorSize

	if err := s.r.readAudio(s.currentLBA, sectors, s.raw[:byteCount]); err != nil {
		// Skip ahead past the bad region and substitute silence so
		// playback continues seamlessly.
		s.log.Error("cdrom: sector read failed, skipping",
			zap.Int32("lba", s.currentLBA),
			zap.Int32("sectors", sectors),
			zap.Error(err))
		s.currentLBA += sectors
		s.pcm = s.pcm[:0]
		for i := 0; i < int(sectors)*SamplesPerSector; i++ {
			s.pcm = append(s.pcm, 0)
		}
		s.pcmPos = 0
		return true
	}

	s.currentLBA += sectors
	s.pcm = s.pcm[:0]
	for i := 0; i+1 < byteCount; i += 2 {
		s.pcm = append(s.pcm, int16(binary.LittleEndian.Uint16(s.raw[i:]))) //nolint:gosec // audio samples
	}
	s.pcmPos = 0
	return true
}

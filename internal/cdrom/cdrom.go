// Package cdrom reads audio from CD-DA discs using the Linux CDROM
// ioctl interface directly, so no external CD library (libcdio etc.)
// is required at runtime.
//
// It provides the disc table of contents, raw PCM streaming for single
// tracks via a beep.Streamer implementation, drive status queries and
// tray ejection. The device is always opened with O_NONBLOCK so that
// open() does not block while the tray is open, the drive is spinning
// up or no disc is inserted; this matches the behaviour of the
// standard eject command.
package cdrom

import (
	"fmt"
	"time"
)

// Red Book audio constants.
const (
	// SampleRate is the CD-DA sample rate in Hz.
	SampleRate = 44100

	// Channels is the CD-DA channel count. Four-channel audio was
	// specified but never implemented by any known drive.
	Channels = 2

	// FramesPerSecond is the number of CD sectors per second of audio.
	FramesPerSecond = 75

	// SectorSize is the size of one raw audio sector in bytes
	// (588 stereo 16-bit frames).
	SectorSize = 2352

	// SamplesPerSector is the number of 16-bit samples in one sector.
	SamplesPerSector = SectorSize / 2

	// sectorsPerRead is how many sectors each CDROMREADAUDIO call
	// requests. 25 sectors is about a third of a second of audio, a
	// reasonable trade-off between latency and syscall overhead.
	sectorsPerRead = 25
)

// TrackInfo describes a single track from the disc table of contents.
type TrackInfo struct {
	// Number is the 1-based track number.
	Number uint8
	// StartLBA is the first sector of the track.
	StartLBA int32
	// EndLBA is the past-the-end sector of the track (exclusive).
	// For the last track it comes from the lead-out address.
	EndLBA int32
	// Duration of the track (sector count / 75).
	Duration time.Duration
	// IsAudio is false for data tracks on mixed-mode discs.
	IsAudio bool
}

// SectorCount returns the number of sectors in this track.
func (t TrackInfo) SectorCount() int32 {
	return t.EndLBA - t.StartLBA
}

// DurationDisplay formats the track duration as MM:SS.
func (t TrackInfo) DurationDisplay() string {
	total := int(t.Duration.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// DiscInfo describes an entire disc, derived from one TOC read.
// It is immutable once built.
type DiscInfo struct {
	FirstTrack uint8
	LastTrack  uint8
	Tracks     []TrackInfo
}

// AudioTracks returns only the audio tracks, in disc order.
func (d *DiscInfo) AudioTracks() []TrackInfo {
	tracks := make([]TrackInfo, 0, len(d.Tracks))
	for _, t := range d.Tracks {
		if t.IsAudio {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// TotalDuration returns the summed duration of all audio tracks.
func (d *DiscInfo) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range d.Tracks {
		if t.IsAudio {
			total += t.Duration
		}
	}
	return total
}

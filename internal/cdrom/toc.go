package cdrom

import (
	"fmt"
	"time"
)

// leadOutTrack is the reserved pseudo-track number addressing the
// lead-out area (end of recorded data).
const leadOutTrack = 0xAA

// tocReader abstracts the two TOC ioctls so the TOC assembly can be
// tested without a drive.
type tocReader interface {
	// tocHeader returns the first and last track numbers.
	tocHeader() (first, last uint8, err error)
	// tocEntry returns the packed adr/ctrl byte and the start address
	// (LBA) for the given track number.
	tocEntry(track uint8) (adrCtrl uint8, lba int32, err error)
}

// isAudioCtrl reports whether the control nibble of a TOC entry marks
// an audio track. The adr/ctrl byte packs adr in the low nibble and
// ctrl in the high nibble; bit 2 of ctrl set means data.
func isAudioCtrl(adrCtrl uint8) bool {
	ctrl := (adrCtrl >> 4) & 0x0F
	return ctrl&0x04 == 0
}

// buildTOC reads the TOC header, every per-track entry and the
// lead-out entry, and assembles the immutable DiscInfo. Each track
// ends where the next one starts; the last track ends at the lead-out.
func buildTOC(r tocReader) (*DiscInfo, error) {
	first, last, err := r.tocHeader()
	if err != nil {
		return nil, err
	}
	if last < first {
		return nil, fmt.Errorf("cdrom: invalid TOC header: first track %d, last track %d", first, last)
	}

	type rawEntry struct {
		number   uint8
		startLBA int32
		isAudio  bool
	}

	entries := make([]rawEntry, 0, int(last)-int(first)+1)
	for num := first; num <= last; num++ {
		adrCtrl, lba, err := r.tocEntry(num)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rawEntry{
			number:   num,
			startLBA: lba,
			isAudio:  isAudioCtrl(adrCtrl),
		})
	}

	_, leadOutLBA, err := r.tocEntry(leadOutTrack)
	if err != nil {
		return nil, err
	}

	tracks := make([]TrackInfo, 0, len(entries))
	for i, raw := range entries {
		endLBA := leadOutLBA
		if i+1 < len(entries) {
			endLBA = entries[i+1].startLBA
		}
		sectors := endLBA - raw.startLBA
		tracks = append(tracks, TrackInfo{
			Number:   raw.number,
			StartLBA: raw.startLBA,
			EndLBA:   endLBA,
			Duration: time.Duration(float64(sectors) / FramesPerSecond * float64(time.Second)),
			IsAudio:  raw.isAudio,
		})
	}

	return &DiscInfo{
		FirstTrack: first,
		LastTrack:  last,
		Tracks:     tracks,
	}, nil
}

//go:build linux

package cdrom

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// CDROM ioctl request numbers from <linux/cdrom.h>.
const (
	// cdromReadTOCHdr reads the TOC header: first and last track numbers.
	cdromReadTOCHdr = 0x5305
	// cdromReadTOCEntry reads a single TOC entry.
	cdromReadTOCEntry = 0x5306
	// cdromEject ejects the tray.
	cdromEject = 0x5309
	// cdromReadAudio reads raw audio sectors.
	cdromReadAudio = 0x530e
	// cdromDriveStatus queries the drive status.
	cdromDriveStatus = 0x5326
	// cdromLockDoor locks or unlocks the drive door (arg 0 = unlock).
	cdromLockDoor = 0x5329

	// addrFormatLBA selects logical block addressing in TOC entry and
	// audio read requests.
	addrFormatLBA = 0x01

	// statusDiscOK is the drive status meaning a disc is present and
	// the tray is closed.
	statusDiscOK = 4
)

// tocHeader mirrors struct cdrom_tochdr.
type tocHeader struct {
	First uint8
	Last  uint8
}

// tocEntry mirrors struct cdrom_tocentry. The kernel declares adr and
// ctrl as 4-bit bitfields packed into one byte; they are kept as a
// single uint8 here and extracted with shift/mask so the memory layout
// is identical. Addr is the largest member of the address union (the
// LBA as a signed 32-bit int); Go's natural alignment inserts the same
// padding the C compiler does.
type tocEntry struct {
	Track    uint8
	AdrCtrl  uint8
	Format   uint8
	Addr     int32
	DataMode uint8
}

// readAudioReq mirrors struct cdrom_read_audio.
type readAudioReq struct {
	Addr    int32
	Format  uint8
	NFrames int32
	Buf     *byte
}

// Device is an open handle to a CD block device.
type Device struct {
	path string
	f    *os.File
}

// OpenDevice opens the CD device read-only and non-blocking. Without
// O_NONBLOCK the kernel tries to read the disc during open(), which
// blocks or fails when the tray is open, the drive is still spinning
// up or no medium is inserted.
func OpenDevice(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("cdrom: open device %q: %w", path, err)
	}
	return &Device{path: path, f: f}, nil
}

// Close closes the device handle.
func (d *Device) Close() error {
	return d.f.Close()
}

func (d *Device) ioctl(req uintptr, arg uintptr) (int, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, arg)
	if errno != 0 {
		return 0, errno
	}
	return int(ret), nil
}

func (d *Device) tocHeader() (uint8, uint8, error) {
	var hdr tocHeader
	if _, err := d.ioctl(cdromReadTOCHdr, uintptr(unsafe.Pointer(&hdr))); err != nil {
		return 0, 0, fmt.Errorf("cdrom: CDROMREADTOCHDR failed: %w", err)
	}
	return hdr.First, hdr.Last, nil
}

func (d *Device) tocEntry(track uint8) (uint8, int32, error) {
	entry := tocEntry{
		Track:  track,
		Format: addrFormatLBA,
	}
	if _, err := d.ioctl(cdromReadTOCEntry, uintptr(unsafe.Pointer(&entry))); err != nil {
		return 0, 0, fmt.Errorf("cdrom: CDROMREADTOCENTRY failed for track %d: %w", track, err)
	}
	return entry.AdrCtrl, entry.Addr, nil
}

// readAudio reads nframes raw sectors starting at lba into buf, which
// must be at least nframes*SectorSize bytes.
func (d *Device) readAudio(lba, nframes int32, buf []byte) error {
	req := readAudioReq{
		Addr:    lba,
		Format:  addrFormatLBA,
		NFrames: nframes,
		Buf:     &buf[0],
	}
	_, err := d.ioctl(cdromReadAudio, uintptr(unsafe.Pointer(&req)))
	runtime.KeepAlive(buf)
	if err != nil {
		return fmt.Errorf("cdrom: CDROMREADAUDIO failed at LBA %d: %w", lba, err)
	}
	return nil
}

// status queries the drive status.
func (d *Device) status() (int, error) {
	ret, err := d.ioctl(cdromDriveStatus, 0)
	if err != nil {
		return 0, fmt.Errorf("cdrom: CDROM_DRIVE_STATUS failed: %w", err)
	}
	return ret, nil
}

// DiscPresent reports whether a disc is present in the drive and the
// tray is closed. Any failure to open or query the drive counts as
// "not present".
func DiscPresent(device string) bool {
	d, err := OpenDevice(device)
	if err != nil {
		return false
	}
	defer d.Close()

	status, err := d.status()
	if err != nil {
		return false
	}
	return status == statusDiscOK
}

// ReadTOC reads the table of contents from the disc in the given
// device and returns information about every track.
func ReadTOC(device string) (*DiscInfo, error) {
	d, err := OpenDevice(device)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	return buildTOC(d)
}

// Eject ejects the CD tray. The OS typically locks the drive door
// while a disc is mounted, so the door is unlocked first; a failed
// unlock is logged and ignored since the door may already be unlocked.
func Eject(device string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := OpenDevice(device)
	if err != nil {
		return err
	}
	defer d.Close()

	if _, err := d.ioctl(cdromLockDoor, 0); err != nil {
		log.Debug("cdrom: door unlock failed (non-fatal)", zap.Error(err))
	}
	if _, err := d.ioctl(cdromEject, 0); err != nil {
		return fmt.Errorf("cdrom: CDROMEJECT failed: %w", err)
	}
	log.Debug("cdrom: tray ejected", zap.String("device", device))
	return nil
}

// OpenTrack opens a streaming PCM source for one audio track. The
// returned source holds its own device handle; Close releases it.
func OpenTrack(device string, track TrackInfo, log *zap.Logger) (*TrackSource, error) {
	if !track.IsAudio {
		return nil, fmt.Errorf("cdrom: track %d is not an audio track", track.Number)
	}
	d, err := OpenDevice(device)
	if err != nil {
		return nil, err
	}
	return newTrackSource(d, d, track.StartLBA, track.EndLBA, log), nil
}

//go:build !linux

package cdrom

import (
	"errors"

	"go.uber.org/zap"
)

// The CDROM ioctl interface is Linux-specific. On other platforms the
// disc operations report an unsupported error and DiscPresent is
// always false.

var errUnsupported = errors.New("cdrom: CD audio is only supported on Linux")

// DiscPresent reports whether a disc is present. Always false on
// non-Linux platforms.
func DiscPresent(string) bool { return false }

// ReadTOC is unsupported on this platform.
func ReadTOC(string) (*DiscInfo, error) { return nil, errUnsupported }

// Eject is unsupported on this platform.
func Eject(string, *zap.Logger) error { return errUnsupported }

// OpenTrack is unsupported on this platform.
func OpenTrack(string, TrackInfo, *zap.Logger) (*TrackSource, error) {
	return nil, errUnsupported
}

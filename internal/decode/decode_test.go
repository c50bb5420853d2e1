package decode

import (
	"bytes"
	"io"
	"testing"
)

func TestFile_UnsupportedExtension(t *testing.T) {
	if _, _, err := File("/tmp/song.aiff"); err == nil {
		t.Fatal("File() should reject unsupported extensions")
	}
}

func TestSkipID3v2_NoTag(t *testing.T) {
	data := []byte("fLaC rest of the file .............")
	r := bytes.NewReader(data)

	if err := skipID3v2(r); err != nil {
		t.Fatalf("skipID3v2() error: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 0 {
		t.Errorf("position after no-tag skip = %d, want 0", pos)
	}
}

func TestSkipID3v2_SkipsTag(t *testing.T) {
	// 10-byte header + 100-byte tag body. Size 100 as a syncsafe int
	// is 0x00 0x00 0x00 0x64.
	data := make([]byte, 200)
	copy(data, "ID3")
	data[6], data[7], data[8], data[9] = 0, 0, 0, 100
	r := bytes.NewReader(data)

	if err := skipID3v2(r); err != nil {
		t.Fatalf("skipID3v2() error: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 110 {
		t.Errorf("position after skip = %d, want 110", pos)
	}
}

func TestSkipID3v2_SyncsafeSize(t *testing.T) {
	// 0x01 0x01 in the low two size bytes: (1<<7)|1 = 129.
	data := make([]byte, 200)
	copy(data, "ID3")
	data[6], data[7], data[8], data[9] = 0, 0, 1, 1
	r := bytes.NewReader(data)

	if err := skipID3v2(r); err != nil {
		t.Fatalf("skipID3v2() error: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 10+129 {
		t.Errorf("position after skip = %d, want %d", pos, 10+129)
	}
}

func TestSkipID3v2_ShortFile(t *testing.T) {
	r := bytes.NewReader([]byte("ID3"))

	if err := skipID3v2(r); err != nil {
		t.Fatalf("skipID3v2() error: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 0 {
		t.Errorf("position for short file = %d, want 0", pos)
	}
}

package stream

import (
	"bytes"
	"io"
	"testing"
)

// buildICY interleaves metadata blocks into audio at the given
// interval, the way an ICY server does.
func buildICY(interval int, audio []byte, titles map[int]string) []byte {
	var out bytes.Buffer
	for i := 0; i < len(audio); i += interval {
		end := i + interval
		if end > len(audio) {
			end = len(audio)
		}
		out.Write(audio[i:end])
		if end-i < interval {
			break // stream ended mid-interval, no metadata follows
		}
		title, ok := titles[end]
		if !ok {
			out.WriteByte(0)
			continue
		}
		meta := []byte("StreamTitle='" + title + "';")
		padded := (len(meta) + 15) / 16 * 16
		out.WriteByte(byte(padded / 16))
		out.Write(meta)
		out.Write(make([]byte, padded-len(meta)))
	}
	return out.Bytes()
}

func TestMetadataReader_PassesAudioThrough(t *testing.T) {
	audio := make([]byte, 256)
	for i := range audio {
		audio[i] = byte(i)
	}
	raw := buildICY(64, audio, map[int]string{64: "Artist - Song", 192: "Other - Tune"})

	r := NewMetadataReader(bytes.NewReader(raw), 64, nil)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Fatalf("audio corrupted: got %d bytes, want %d identical bytes", len(got), len(audio))
	}
}

func TestMetadataReader_InvokesCallback(t *testing.T) {
	audio := make([]byte, 256)
	raw := buildICY(64, audio, map[int]string{64: "Artist - Song", 192: "Other - Tune"})

	var titles []string
	r := NewMetadataReader(bytes.NewReader(raw), 64, func(title string) {
		titles = append(titles, title)
	})
	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}

	want := []string{"Artist - Song", "Other - Tune"}
	if len(titles) != len(want) {
		t.Fatalf("callback fired %d times, want %d (%v)", len(titles), len(want), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("title %d = %q, want %q", i, titles[i], want[i])
		}
	}
}

func TestMetadataReader_EmptyBlocksSkipCallback(t *testing.T) {
	audio := make([]byte, 256)
	raw := buildICY(64, audio, nil) // all zero-length blocks

	fired := 0
	r := NewMetadataReader(bytes.NewReader(raw), 64, func(string) { fired++ })
	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if fired != 0 {
		t.Errorf("callback fired %d times for empty blocks, want 0", fired)
	}
}

func TestMetadataReader_ZeroIntervalPassthrough(t *testing.T) {
	data := []byte("raw audio with no metadata framing at all")
	r := NewMetadataReader(bytes.NewReader(data), 0, func(string) {
		t.Error("callback fired on a stream with no metadata interval")
	})

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("passthrough altered the stream")
	}
}

func TestMetadataReader_SmallReads(t *testing.T) {
	audio := make([]byte, 100)
	for i := range audio {
		audio[i] = byte(i + 1)
	}
	raw := buildICY(10, audio, map[int]string{10: "T"})

	r := NewMetadataReader(bytes.NewReader(raw), 10, nil)
	var got []byte
	buf := make([]byte, 3) // force reads to straddle block boundaries
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error: %v", err)
		}
	}
	if !bytes.Equal(got, audio) {
		t.Fatal("small reads corrupted the audio stream")
	}
}

func TestExtractStreamTitle(t *testing.T) {
	tests := []struct {
		block string
		want  string
		ok    bool
	}{
		{"StreamTitle='Miles Davis - So What';StreamUrl='';", "Miles Davis - So What", true},
		{"StreamTitle='';", "", true},
		{"StreamUrl='http://x';", "", false},
		{"StreamTitle='Rock 'n' Roll - Hit';", "Rock 'n' Roll - Hit", true},
	}
	for _, tt := range tests {
		got, ok := extractStreamTitle(tt.block)
		if ok != tt.ok || got != tt.want {
			t.Errorf("extractStreamTitle(%q) = (%q, %v), want (%q, %v)", tt.block, got, ok, tt.want, tt.ok)
		}
	}
}

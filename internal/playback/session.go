package playback

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spindleaudio/spindle/internal/cdrom"
	"github.com/spindleaudio/spindle/internal/decode"
	"github.com/spindleaudio/spindle/internal/sink"
	"github.com/spindleaudio/spindle/internal/stream"
)

// A session goroutine runs one playback kind to completion or until it
// is superseded. It holds its own sink reference for its whole
// lifetime, so a device switch mid-session leaves it draining the old
// sink while new commands address the new one.

// endSession clears the active flag, unless a newer session has
// already taken over.
func (e *Engine) endSession(id int) {
	e.mu.Lock()
	if e.session == id {
		e.active = false
	}
	e.mu.Unlock()
}

// fileSession walks the file queue from the shared cursor, playing
// each item to the end before advancing. An item that fails to open or
// decode is logged and skipped.
func (e *Engine) fileSession(id int, out sink.Interface) {
	out.Acquire()
	defer out.Release()
	defer e.endSession(id)

	e.sendState(StatePlaying)
	e.sendState(StateSeekable)
	e.sendState(StateStartPlaying)

	for {
		e.mu.Lock()
		if e.session != id || e.cursor >= len(e.queue) {
			e.mu.Unlock()
			break
		}
		item := e.queue[e.cursor]
		e.cursor++
		e.mu.Unlock()

		e.sendTitle(TitleChanged{
			Artist: item.Artist,
			Album:  item.Album,
			Title:  item.Title,
			Cover:  item.Cover,
		})

		streamer, format, err := e.decode(item.Path)
		if err != nil {
			e.log.Warn("playback: cannot open queue item",
				zap.String("path", item.Path), zap.Error(err))
			continue
		}
		out.Append(streamer, format)
		out.Play()
		out.Wait()
		streamer.Close()
	}

	e.sendState(StateStopped)
	e.sendState(StateUnseekable)
}

// cdSession plays a sequence of audio disc tracks. tracks is the
// audio-only subset; the shared cursor indexes into it, so skip
// commands work the same as for the file queue. A track that fails to
// open is logged and the session moves on to the next one.
func (e *Engine) cdSession(id int, out sink.Interface, device string, tracks []cdrom.TrackInfo) {
	out.Acquire()
	defer out.Release()
	defer e.endSession(id)

	e.sendState(StatePlaying)
	e.sendState(StateUnseekable)
	e.sendState(StateStartPlaying)

	for {
		e.mu.Lock()
		if e.session != id || e.cursor >= len(tracks) {
			e.mu.Unlock()
			break
		}
		track := tracks[e.cursor]
		e.cursor++
		e.mu.Unlock()

		e.sendTitle(TitleChanged{
			Artist: placeholder,
			Album:  "Audio CD",
			Title:  fmt.Sprintf("Track %d", track.Number),
			Cover:  placeholder,
		})

		src, err := e.openTrack(device, track)
		if err != nil {
			e.log.Warn("playback: cannot open disc track",
				zap.Uint8("track", track.Number), zap.Error(err))
			continue
		}
		out.Append(src, src.Format())
		out.Play()
		out.Wait()
		src.Close()
	}

	e.sendState(StateStopped)
}

// readCloser pairs the metadata-stripping reader with the buffer that
// owns the connection.
type readCloser struct {
	io.Reader
	io.Closer
}

// streamSession fetches the stream, buffers it against network jitter
// and plays it until it ends or is stopped. Embedded metadata blocks
// become TitleChanged events as they arrive.
func (e *Engine) streamSession(id int, out sink.Interface, url, icon string) {
	out.Acquire()
	defer out.Release()
	defer e.endSession(id)

	st, err := stream.Open(context.Background(), url)
	if err != nil {
		e.log.Error("playback: stream setup failed",
			zap.String("url", url), zap.Error(err))
		e.sendState(StateStopped)
		return
	}

	buf := stream.NewBoundedBuffer(st.Body, stream.DefaultCapacity, st.Headers.PrefetchBytes())

	station := st.Headers.Name
	if station == "" {
		station = url
	}
	e.sendTitle(TitleChanged{
		Artist: placeholder,
		Album:  placeholder,
		Title:  station,
		Cover:  icon,
	})

	var r io.Reader = buf
	if st.Headers.MetadataInterval > 0 {
		r = stream.NewMetadataReader(buf, st.Headers.MetadataInterval, func(raw string) {
			artist, title := ParseStreamTitle(raw)
			e.sendTitle(TitleChanged{
				Artist: artist,
				Album:  station,
				Title:  title,
				Cover:  icon,
			})
		})
	}

	streamer, format, err := decode.Stream(st.Headers.ContentType, readCloser{r, buf})
	if err != nil {
		buf.Close()
		e.log.Error("playback: cannot decode stream",
			zap.String("url", url), zap.String("content_type", st.Headers.ContentType), zap.Error(err))
		e.sendState(StateStopped)
		return
	}

	e.sendState(StatePlaying)
	e.sendState(StateUnseekable)
	e.sendState(StateStartPlaying)

	out.Append(streamer, format)
	out.Play()
	out.Wait()
	streamer.Close()

	e.sendState(StateStopped)
}

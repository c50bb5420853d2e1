package playback

import "strings"

const eventBufferSize = 16

// placeholder fills metadata fields that have no meaningful value, so
// listeners always get a printable string.
const placeholder = "-"

// State values are emitted on the state channel as playback evolves.
// The stream is informational, not a strict state machine transcript:
// listeners fold it into their own is-playing / is-paused / is-muted
// view, and ordering across session boundaries is not guaranteed.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateMuted
	StateUnmuted
	StateSeekable
	StateUnseekable
	StateStartPlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateMuted:
		return "Muted"
	case StateUnmuted:
		return "Unmuted"
	case StateSeekable:
		return "Seekable"
	case StateUnseekable:
		return "Unseekable"
	case StateStartPlaying:
		return "StartPlaying"
	default:
		return "Unknown"
	}
}

// Item is one file-queue entry. Created by a collaborator (library
// browser, CLI) and owned by the engine's queue once appended.
type Item struct {
	Artist string
	Album  string
	Title  string
	Path   string
	Cover  string
}

// TitleChanged is a snapshot of what is now playing, emitted on every
// track or station change.
type TitleChanged struct {
	Artist string
	Album  string
	Title  string
	Cover  string
}

// Titles returns the outbound now-playing channel. Sends are
// best-effort: events are dropped when no one drains the channel.
func (e *Engine) Titles() <-chan TitleChanged { return e.titleCh }

// States returns the outbound state channel. Same best-effort contract
// as Titles.
func (e *Engine) States() <-chan State { return e.stateCh }

func (e *Engine) sendTitle(t TitleChanged) {
	select {
	case e.titleCh <- t:
	default:
	}
}

func (e *Engine) sendState(s State) {
	select {
	case e.stateCh <- s:
	default:
	}
}

// ParseStreamTitle splits an embedded stream title following the
// "Artist - Title" radio convention: the first "-" separates artist
// from title, and a trailing "'"-quoted suffix on the title (live
// venue annotations, mostly) is discarded. A title with no separator
// is taken as all artist; fields that cannot be recovered come back as
// the placeholder.
func ParseStreamTitle(raw string) (artist, title string) {
	left, right, found := strings.Cut(raw, "-")
	if !found {
		artist = strings.TrimSpace(raw)
		if artist == "" {
			artist = placeholder
		}
		return artist, placeholder
	}

	artist = strings.TrimSpace(left)
	title = strings.TrimSpace(right)
	if i := strings.Index(title, "'"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if artist == "" {
		artist = placeholder
	}
	if title == "" {
		title = placeholder
	}
	return artist, title
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spindleaudio/spindle/internal/cdrom"
	"github.com/spindleaudio/spindle/internal/config"
	"github.com/spindleaudio/spindle/internal/playback"
	"github.com/spindleaudio/spindle/internal/sink"
	"github.com/spindleaudio/spindle/internal/stderr"
)

var (
	cfg     *config.Config
	log     *zap.Logger
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spindle",
		Short:         "CD-audio and radio playback engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log, err = buildLogger(verbose)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(playCmd(), streamCmd(), cdCmd(), tocCmd(), ejectCmd(), devicesCmd())
	return root
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	c := zap.NewDevelopmentConfig()
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return c.Build()
}

// withEngine runs fn with a fully wired engine: stderr capture first
// so ALSA probe noise cannot corrupt the output, then PortAudio, then
// the engine on the configured output device.
func withEngine(output string, fn func(e *playback.Engine) error) error {
	if err := stderr.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "stderr capture unavailable:", err)
	}
	defer stderr.Stop()
	go func() {
		for line := range stderr.Messages {
			log.Debug("audio backend", zap.String("line", line))
		}
	}()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing audio host: %w", err)
	}
	defer portaudio.Terminate()

	if output == "" {
		output = cfg.OutputDevice
	}
	e, err := playback.New(output, log)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer e.Close()
	e.Volume(cfg.Volume)

	return fn(e)
}

// watch prints engine events until the session reports Stopped.
func watch(e *playback.Engine) {
	for {
		select {
		case tc := <-e.Titles():
			fmt.Printf("now playing: %s - %s [%s]\n", tc.Artist, tc.Title, tc.Album)
		case s := <-e.States():
			if verbose {
				fmt.Println(s)
			}
			if s == playback.StateStopped {
				return
			}
		}
	}
}

// itemFromFile builds a queue item from a file's tags, falling back to
// the file name when the tags are missing or unreadable.
func itemFromFile(path string) playback.Item {
	item := playback.Item{
		Path:   path,
		Artist: "-",
		Album:  "-",
		Title:  filepath.Base(path),
		Cover:  "-",
	}

	f, err := os.Open(path)
	if err != nil {
		return item
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return item
	}
	if m.Title() != "" {
		item.Title = m.Title()
	}
	if m.Artist() != "" {
		item.Artist = m.Artist()
	}
	if m.Album() != "" {
		item.Album = m.Album()
	}
	return item
}

func playCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play local audio files in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withEngine(output, func(e *playback.Engine) error {
				items := make([]playback.Item, 0, len(args))
				for _, path := range args {
					items = append(items, itemFromFile(path))
				}
				e.Append(items...)
				e.Play()
				watch(e)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output device name")
	return cmd
}

func streamCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stream URL|STATION",
		Short: "Play a network radio stream or a configured station",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			url, icon := args[0], ""
			if st, ok := cfg.Station(args[0]); ok {
				url, icon = st.URL, st.Icon
			} else if !strings.Contains(url, "://") {
				return fmt.Errorf("unknown station %q and not a URL", args[0])
			}
			return withEngine(output, func(e *playback.Engine) error {
				e.PlayStream(url, icon)
				watch(e)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output device name")
	return cmd
}

func cdCmd() *cobra.Command {
	var output, device string
	var track int
	cmd := &cobra.Command{
		Use:   "cd",
		Short: "Play the audio tracks of the inserted disc",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			dev := cdDevice(device)
			if !cdrom.DiscPresent(dev) {
				return fmt.Errorf("no disc in %s", dev)
			}
			disc, err := cdrom.ReadTOC(dev)
			if err != nil {
				return err
			}
			audio := disc.AudioTracks()
			if len(audio) == 0 {
				return fmt.Errorf("disc in %s has no audio tracks", dev)
			}
			start := track - 1
			if start < 0 {
				start = 0
			}
			if start >= len(audio) {
				return fmt.Errorf("disc has only %d audio tracks", len(audio))
			}
			return withEngine(output, func(e *playback.Engine) error {
				e.PlayCD(dev, disc.Tracks, start)
				watch(e)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output device name")
	cmd.Flags().StringVarP(&device, "device", "d", "", "CD device path")
	cmd.Flags().IntVarP(&track, "track", "t", 1, "audio track to start from (1-based)")
	return cmd
}

func tocCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Print the table of contents of the inserted disc",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			dev := cdDevice(device)
			disc, err := cdrom.ReadTOC(dev)
			if err != nil {
				return err
			}
			fmt.Printf("%s: tracks %d-%d, %d audio, total %s\n",
				dev, disc.FirstTrack, disc.LastTrack, len(disc.AudioTracks()),
				disc.TotalDuration().Round(time.Second))
			fmt.Println("  #     start       end  length  type")
			for _, t := range disc.Tracks {
				kind := "audio"
				if !t.IsAudio {
					kind = "data"
				}
				fmt.Printf("%3d  %8d  %8d  %6s  %s\n",
					t.Number, t.StartLBA, t.EndLBA, t.DurationDisplay(), kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "CD device path")
	return cmd
}

func ejectCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "eject",
		Short: "Eject the disc",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return cdrom.Eject(cdDevice(device), log)
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "CD device path")
	return cmd
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available output devices",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := stderr.Start(); err == nil {
				defer stderr.Stop()
			}
			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("initializing audio host: %w", err)
			}
			defer portaudio.Terminate()
			for _, name := range sink.Devices() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func cdDevice(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Device
}

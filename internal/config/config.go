package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "spindle"

// Station is a named radio stream.
type Station struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
	Icon string `koanf:"icon"` // path to a cover image for the UI
}

type Config struct {
	Device       string    `koanf:"device"`        // CD device path
	OutputDevice string    `koanf:"output_device"` // empty means system default
	Volume       float64   `koanf:"volume"`
	Stations     []Station `koanf:"stations"`
}

// Load reads configuration files in order of priority (last wins) and
// applies defaults for anything left unset.
func Load() (*Config, error) {
	return load(getConfigPaths())
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Device: "/dev/cdrom",
		Volume: 1.0,
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Device == "" {
		cfg.Device = "/dev/cdrom"
	}
	for i, s := range cfg.Stations {
		cfg.Stations[i].Icon = expandPath(s.Icon)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// ~/.config/spindle/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Station looks up a configured station by name, case-insensitively.
func (c *Config) Station(name string) (Station, bool) {
	for _, s := range c.Stations {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Station{}, false
}

package island

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gekko3d/island/sim"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"` // linear gain applied to the whole mix
}

// Config is the program configuration. A YAML file only needs the keys it overrides.
type Config struct {
	Window   WindowConfig `yaml:"window"`
	AssetDir string       `yaml:"asset_dir"`
	Audio    AudioConfig  `yaml:"audio"`
	Debug    bool         `yaml:"debug"`
	Sim      sim.Config   `yaml:"sim"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Island",
		},
		AssetDir: "assets",
		Audio: AudioConfig{
			Enabled: true,
			Volume:  0.5,
		},
		Sim: sim.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Audio.Volume < 0 {
		return fmt.Errorf("audio volume must be non-negative, got %v", c.Audio.Volume)
	}
	return c.Sim.Validate()
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Assets      AssetsConfig      `toml:"assets"`
	Jobs        JobsConfig        `toml:"jobs"`
	Watch       WatchConfig       `toml:"watch"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ApplicationConfig struct {
	Name string `toml:"name"`
	// Frames per second of the main loop. Registry.Update runs once per frame.
	TickRate int `toml:"tick_rate"`
}

type AssetsConfig struct {
	Root         string `toml:"root"`
	MetadataRoot string `toml:"metadata_root"`
	MaxEntries   int    `toml:"max_entries"` // 0 = unbounded
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type WatchConfig struct {
	Enabled  bool   `toml:"enabled"`
	Debounce string `toml:"debounce"` // time.ParseDuration syntax, e.g. "100ms"
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Anima",
			TickRate: 60,
		},
		Assets: AssetsConfig{
			Root:         "assets",
			MetadataRoot: "assets_meta",
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: "100ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file on top of Default. Relative asset and metadata
// roots are resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as TOML to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolve(dir string) {
	if c.Assets.Root != "" && !filepath.IsAbs(c.Assets.Root) {
		c.Assets.Root = filepath.Join(dir, c.Assets.Root)
	}
	if c.Assets.MetadataRoot != "" && !filepath.IsAbs(c.Assets.MetadataRoot) {
		c.Assets.MetadataRoot = filepath.Join(dir, c.Assets.MetadataRoot)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Application.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("application.tick_rate must be positive, got %d: %w", c.Application.TickRate, ErrInvalidConfig))
	}
	if c.Assets.Root == "" {
		errs = append(errs, fmt.Errorf("assets.root is empty: %w", ErrInvalidConfig))
	}
	if c.Assets.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("assets.max_entries must not be negative, got %d: %w", c.Assets.MaxEntries, ErrInvalidConfig))
	}
	if c.Jobs.Workers <= 0 {
		errs = append(errs, fmt.Errorf("jobs.workers must be positive, got %d: %w", c.Jobs.Workers, ErrInvalidConfig))
	}
	if c.Jobs.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("jobs.queue_size must not be negative, got %d: %w", c.Jobs.QueueSize, ErrInvalidConfig))
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level %q: %w", c.Logging.Level, ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// DebounceDuration parses Debounce. An empty value means no debouncing.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	if w.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("watch.debounce %q: %w", w.Debounce, ErrInvalidConfig)
	}
	return d, nil
}

// FrameTime is the target duration of one main loop iteration.
func (a ApplicationConfig) FrameTime() time.Duration {
	if a.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(a.TickRate)
}

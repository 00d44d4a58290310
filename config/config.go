// Package config loads engine configuration from TOML or YAML files.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default:
//
//	[pool]
//	max_lifetime = "30s"
//	update_interval = "1s"
//	high_water = 64
//
//	[cache]
//	source_cache = 256
//
//	[log]
//	level = "debug"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/g3d/device/gpu"
	"github.com/gogpu/g3d/device/wgsl"
	"github.com/gogpu/g3d/pool"
)

// Configuration errors.
var (
	// ErrFormat is returned for file extensions that are not TOML or YAML.
	ErrFormat = errors.New("config: unsupported format")

	// ErrInvalid is returned (wrapped) for out-of-range values.
	ErrInvalid = errors.New("config: invalid value")
)

// Format is a configuration file format.
type Format uint8

const (
	// TOML is the default format.
	TOML Format = iota
	// YAML format.
	YAML
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// PoolConfig configures the shader and program pools.
type PoolConfig struct {
	MaxLifetime    Duration `toml:"max_lifetime" yaml:"max_lifetime"`
	UpdateInterval Duration `toml:"update_interval" yaml:"update_interval"`
	// HighWater caps idle objects per pool. Zero means unbounded.
	HighWater int `toml:"high_water" yaml:"high_water"`
}

// CacheConfig sizes the source caches.
type CacheConfig struct {
	// SourceCache is the number of preprocessed shader sources kept.
	SourceCache int `toml:"source_cache" yaml:"source_cache"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format"`
}

// Config is the engine configuration.
type Config struct {
	Pool  PoolConfig  `toml:"pool" yaml:"pool"`
	Cache CacheConfig `toml:"cache" yaml:"cache"`
	Log   LogConfig   `toml:"log" yaml:"log"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			MaxLifetime:    Duration(pool.DefaultMaxLifetime),
			UpdateInterval: Duration(pool.DefaultUpdateInterval),
		},
		Cache: CacheConfig{
			SourceCache: wgsl.DefaultCacheSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path. The format follows the
// file extension.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Decode(bytes.NewReader(data), format)
}

// Decode reads a configuration over the defaults and validates it.
// Unknown keys are errors.
func Decode(r io.Reader, format Format) (Config, error) {
	cfg := Default()
	switch format {
	case TOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: format %d", ErrFormat, format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Pool.MaxLifetime <= 0:
		return fmt.Errorf("%w: pool.max_lifetime must be positive", ErrInvalid)
	case c.Pool.UpdateInterval < 0:
		return fmt.Errorf("%w: pool.update_interval must not be negative", ErrInvalid)
	case c.Pool.HighWater < 0:
		return fmt.Errorf("%w: pool.high_water must not be negative", ErrInvalid)
	case c.Cache.SourceCache < 0:
		return fmt.Errorf("%w: cache.source_cache must not be negative", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("%w: log.format %q", ErrInvalid, f)
	}
	return nil
}

// PoolOptions returns the pool options of the configuration.
func (c Config) PoolOptions() []pool.Option {
	return []pool.Option{
		pool.WithMaxLifetime(time.Duration(c.Pool.MaxLifetime)),
		pool.WithUpdateInterval(time.Duration(c.Pool.UpdateInterval)),
		pool.WithHighWater(c.Pool.HighWater),
	}
}

// GPUOptions returns the device options of the configuration.
func (c Config) GPUOptions() []gpu.Option {
	return []gpu.Option{gpu.WithSourceCache(c.Cache.SourceCache)}
}

// Level returns the configured log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return l, nil
}

// NewLogger returns a logger writing to w at the configured level and format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

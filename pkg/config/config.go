// Package config reads the textmosaic TOML configuration file.
//
// A config file supplies defaults for the CLI and server. Values given on the
// command line always win:
//
//	[mosaic]
//	threshold = 80
//	black_background = false
//	font = "gomono"
//	formats = ["png", "txt"]
//
//	[cache]
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// Defaults for sections that have no pipeline counterpart.
const (
	DefaultAddr       = ":8080"
	DefaultDatabase   = "textmosaic"
	DefaultCollection = "mosaics"
)

// Config is the decoded config file.
type Config struct {
	Mosaic Mosaic `toml:"mosaic"`
	Cache  Cache  `toml:"cache"`
	Store  Store  `toml:"store"`
	Server Server `toml:"server"`
}

// Mosaic holds pipeline option defaults.
type Mosaic struct {
	Threshold       *float64 `toml:"threshold"`
	BlackBackground *bool    `toml:"black_background"`
	Font            string   `toml:"font"`
	FontDir         string   `toml:"font_dir"`
	FontSize        float64  `toml:"font_size"`
	CaseWidth       int      `toml:"case_width"`
	CaseHeight      int      `toml:"case_height"`
	Colors          int      `toml:"colors"`
	Width           int      `toml:"width"`
	Formats         []string `toml:"formats"`
	Layers          bool     `toml:"layers"`
	Seed            uint64   `toml:"seed"`
}

// Cache selects the cache backend. RedisURL wins over Dir.
type Cache struct {
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// Store selects where the server keeps mosaic records. Without a MongoURI
// records live in memory.
type Store struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures the HTTP server.
type Server struct {
	Addr string `toml:"addr"`
}

// DefaultPath returns $XDG_CONFIG_HOME/textmosaic/config.toml, or the
// platform's equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "locate config directory")
	}
	return filepath.Join(dir, "textmosaic", "config.toml"), nil
}

// Load decodes the file at path. Unknown keys are rejected so typos do not
// pass silently.
func Load(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s not found", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadOrDefault loads path, or the default path when path is empty. A
// missing default file yields the default config; a missing explicit file
// is an error.
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	def, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(def)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns the config used when no file exists.
func Default() Config {
	var cfg Config
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Store.Database == "" {
		c.Store.Database = DefaultDatabase
	}
	if c.Store.Collection == "" {
		c.Store.Collection = DefaultCollection
	}
}

// Apply copies the [mosaic] section onto opts, leaving every field that is
// already set untouched.
func (c Config) Apply(opts *pipeline.Options) {
	m := c.Mosaic
	if opts.Threshold == nil && m.Threshold != nil {
		t := *m.Threshold
		opts.Threshold = &t
	}
	if !opts.WhiteBackground && m.BlackBackground != nil {
		opts.WhiteBackground = !*m.BlackBackground
	}
	if opts.Font == "" {
		opts.Font = m.Font
	}
	if opts.FontDir == "" {
		opts.FontDir = m.FontDir
	}
	if opts.FontSize == 0 {
		opts.FontSize = m.FontSize
	}
	if opts.CaseWidth == 0 && opts.CaseHeight == 0 {
		opts.CaseWidth, opts.CaseHeight = m.CaseWidth, m.CaseHeight
	}
	if opts.Colors == 0 {
		opts.Colors = m.Colors
	}
	if opts.Width == 0 {
		opts.Width = m.Width
	}
	if len(opts.Formats) == 0 {
		opts.Formats = m.Formats
	}
	if !opts.Layers {
		opts.Layers = m.Layers
	}
	if opts.Seed == 0 {
		opts.Seed = m.Seed
	}
}

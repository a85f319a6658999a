// Package cli implements the textmosaic command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/pkg/buildinfo"
	"github.com/matzehuels/textmosaic/pkg/cache"
	"github.com/matzehuels/textmosaic/pkg/config"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/observability"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "textmosaic"

	// defaultOutputDir is where rendered artifacts go unless -o says otherwise.
	defaultOutputDir = "results"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty means the default location.
	configPath string

	// config is loaded once the command line has been parsed.
	config config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Textmosaic draws images with the words of a text",
		Long:         `Textmosaic renders an image as a mosaic of characters. Words from one or more texts are placed in reading order wherever their ink density matches the picture, and the gaps are filled with single characters.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/textmosaic/config.toml)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.asciiCommand())
	root.AddCommand(c.grayscaleCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config file and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg

	observability.SetPipelineHooks(observability.NewLogHooks(c.Logger))
	observability.SetCacheHooks(observability.NewLogHooks(c.Logger))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, c.keyer(), c.Logger), nil
}

// keyer scopes cache keys under the configured prefix, if any.
func (c *CLI) keyer() cache.Keyer {
	if p := c.config.Cache.Prefix; p != "" {
		return cache.NewScopedKeyer(nil, p)
	}
	return cache.NewDefaultKeyer()
}

// newCache picks the backend named by the config: Redis when a URL is set,
// otherwise a file cache under the cache directory.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := c.config.Cache.RedisURL; url != "" {
		if err := errors.ValidateURI(url, "redis", "rediss"); err != nil {
			return nil, err
		}
		return cache.NewRedisCache(url)
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/textmosaic/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

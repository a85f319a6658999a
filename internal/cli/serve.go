package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/internal/server"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/observability"
	"github.com/matzehuels/textmosaic/pkg/store"
)

const storeCloseTimeout = 5 * time.Second

type serveOpts struct {
	addr    string
	noCache bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mosaic API over HTTP",
		Long: `Serve starts an HTTP server that builds mosaics from JSON requests.

Records are kept in MongoDB when [store] mongo_uri is configured and in
memory otherwise.`,
		Example: `  textmosaic serve --addr :9000
  curl -s localhost:9000/v1/mosaics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				opts.addr = c.config.Server.Addr
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", c.config.Server.Addr, "listen address")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			c.Logger.Warn("close store", "err", err)
		}
	}()

	observability.SetHTTPHooks(observability.NewLogHooks(c.Logger))

	srvOpts := []server.Option{server.WithDefaults(c.config.Apply)}
	if dir := c.config.Mosaic.FontDir; dir != "" {
		srvOpts = append(srvOpts, server.WithFontDir(dir))
	}
	srv := server.New(runner, st, c.Logger, srvOpts...)
	return srv.ListenAndServe(ctx, opts.addr)
}

// newStore connects to MongoDB when configured, else keeps records in memory.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	cfg := c.config.Store
	if cfg.MongoURI == "" {
		c.Logger.Info("storing mosaics in memory")
		return store.NewMemoryStore(), nil
	}
	if err := errors.ValidateURI(cfg.MongoURI, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	c.Logger.Info("storing mosaics in MongoDB", "database", cfg.Database, "collection", cfg.Collection)
	ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
	if err != nil {
		return nil, err
	}
	return ms, nil
}

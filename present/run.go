// Package present implements program commands: it opens table source,
// loads requested chunks and presents them in terminal, interactive viewer
// or exported files.
package present

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tblview/colormap"
	"tblview/common"
	"tblview/css"
	"tblview/loader"
	"tblview/render"
	"tblview/source"
	"tblview/state"
	"tblview/table"
)

// ChunkFlags are shared by all commands working with table chunks.
func ChunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "row", Aliases: []string{"r"}, Usage: "first `ROW` of the chunk (zero based)"},
		&cli.IntFlag{Name: "column", Aliases: []string{"col"}, Usage: "first `COLUMN` of the chunk (zero based)"},
		&cli.IntFlag{Name: "rows", Usage: "number of rows in chunk, configuration value if not set"},
		&cli.IntFlag{Name: "columns", Usage: "number of columns in chunk, configuration value if not set"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"},
			Usage: "cell `MODE` (supported modes: " + strings.Join(common.ModeNames(), ", ") + ")"},
		&cli.BoolFlag{Name: "no-styles", Usage: "do not compute cell styles"},
		&cli.BoolFlag{Name: "exclude-row-header", Aliases: []string{"xr"}, Usage: "request chunks without row labels"},
		&cli.BoolFlag{Name: "exclude-column-header", Aliases: []string{"xc"}, Usage: "request chunks without column labels"},
		&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Usage: "limit text table to `WIDTH` cells, configuration value if not set"},
	}
}

// sourceName returns table source from command line or configuration. Local
// paths are made absolute.
func sourceName(cmd *cli.Command, env *state.LocalEnv) (string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		src = env.Cfg.Source.HTTP.URL
	}
	if len(src) == 0 {
		return "", errors.New("no table source has been specified")
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, nil
	}
	return filepath.Abs(src)
}

// openSource opens table source, when debugging every fetched chunk is kept
// in the report.
func openSource(ctx context.Context, name string, env *state.LocalEnv) (source.Source, error) {
	opts := source.Options{
		CodePage:   env.CodePage,
		Stylesheet: env.Stylesheet,
		Token:      env.Cfg.Source.HTTP.Token.Reveal(),
		Timeout:    env.Cfg.Source.HTTP.Timeout,
	}
	src, err := source.Open(ctx, name, opts, env.Log)
	if err != nil {
		return nil, err
	}
	if env.Rpt != nil {
		return source.WithRecorder(src, env.Rpt), nil
	}
	return src, nil
}

// loaderOptions merges command line with configuration.
func loaderOptions(cmd *cli.Command, env *state.LocalEnv) loader.Options {
	return loader.Options{
		MaxQueued: env.Cfg.Loader.MaxQueuedRequests,
		NoStyles:  env.Cfg.Loader.NoStyles || cmd.Bool("no-styles"),
	}
}

// chunkRequest builds request for the chunk specified on command line.
func chunkRequest(cmd *cli.Command, env *state.LocalEnv) (loader.LoadRequest, error) {
	req := loader.LoadRequest{
		Region: table.ChunkRegion{
			FirstRow:    cmd.Int("row"),
			FirstColumn: cmd.Int("column"),
			Rows:        env.Cfg.View.ChunkRows,
			Columns:     env.Cfg.View.ChunkColumns,
		},
		ExcludeRowHeader:    env.Cfg.Loader.ExcludeRowHeader || cmd.Bool("exclude-row-header"),
		ExcludeColumnHeader: env.Cfg.Loader.ExcludeColumnHeader || cmd.Bool("exclude-column-header"),
	}
	if cmd.IsSet("rows") {
		req.Region.Rows = cmd.Int("rows")
	}
	if cmd.IsSet("columns") {
		req.Region.Columns = cmd.Int("columns")
	}
	if req.Region.FirstRow < 0 || req.Region.FirstColumn < 0 {
		return req, fmt.Errorf("chunk origin cannot be negative: %d, %d", req.Region.FirstRow, req.Region.FirstColumn)
	}
	if req.Region.IsEmpty() {
		return req, fmt.Errorf("chunk is empty: %s", req.Region)
	}
	return req, nil
}

// renderOptions merges command line with configuration. Unknown mode falls
// back to configured one.
func renderOptions(cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) render.Options {
	opts := render.Options{
		Mode:      env.Cfg.View.Mode,
		Separator: env.Cfg.View.HeaderSeparator,
	}
	if name := cmd.String("mode"); len(name) > 0 {
		mode, err := common.ParseMode(name)
		if err != nil {
			log.Warn("Unknown cell mode requested, using configured one", zap.String("mode", name), zap.Stringer("using", opts.Mode), zap.Error(err))
		} else {
			opts.Mode = mode
		}
	}
	lo, okLo := css.ParseColor(env.Cfg.View.Colormap.MinColor)
	hi, okHi := css.ParseColor(env.Cfg.View.Colormap.MaxColor)
	if okLo && okHi {
		opts.Colormap = colormap.NewDiverging(lo, hi)
	}
	return opts
}

type result struct {
	chunk  *table.Chunk
	values table.ChunkValues
	err    error
}

// collector is a listener waiting for a single request.
type collector struct {
	req      loader.LoadRequest
	noStyles bool
	res      result
	done     chan struct{}
}

func (c *collector) OnChunkDataReady(req loader.LoadRequest, chunk *table.Chunk) {
	if req != c.req {
		return
	}
	c.res.chunk = chunk
	if c.noStyles {
		close(c.done)
	}
}

func (c *collector) OnStyledValuesReady(req loader.LoadRequest, values table.ChunkValues) {
	if req != c.req {
		return
	}
	c.res.values = values
	close(c.done)
}

func (c *collector) OnError(req loader.LoadRequest, err error) {
	if req != c.req {
		return
	}
	c.res.err = err
	close(c.done)
}

// fetch loads single chunk through loader, so command line commands behave
// exactly like interactive viewer does.
func fetch(ctx context.Context, src loader.Fetcher, req loader.LoadRequest, opts loader.Options, log *zap.Logger) (*table.Chunk, table.ChunkValues, error) {
	c := &collector{req: req, noStyles: opts.NoStyles, done: make(chan struct{})}
	l := loader.New(src, c, opts, log)
	l.Enqueue(req)
	l.Start(ctx)
	defer func() {
		l.Dispose()
		<-l.Done()
	}()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-c.done:
	}
	if c.res.err != nil {
		return nil, nil, c.res.err
	}
	return c.res.chunk, c.res.values, nil
}

// load is common part of non interactive commands.
func load(ctx context.Context, cmd *cli.Command, name string) (*state.LocalEnv, *render.Grid, loader.LoadRequest, error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named(name)

	srcName, err := sourceName(cmd, env)
	if err != nil {
		return env, nil, loader.LoadRequest{}, err
	}
	req, err := chunkRequest(cmd, env)
	if err != nil {
		return env, nil, req, err
	}
	src, err := openSource(ctx, srcName, env)
	if err != nil {
		return env, nil, req, fmt.Errorf("unable to open table source: %w", err)
	}
	defer src.Close()

	log.Debug("Loading chunk", zap.String("source", srcName), zap.Stringer("request", req))
	chunk, values, err := fetch(ctx, src, req, loaderOptions(cmd, env), env.Log)
	if err != nil {
		return env, nil, req, fmt.Errorf("unable to load %s: %w", req.Region, err)
	}
	return env, render.Resolve(chunk, values, renderOptions(cmd, env, log)), req, nil
}

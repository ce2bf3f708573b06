package present

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tblview/common"
	"tblview/export"
	"tblview/render"
	"tblview/state"
	"tblview/table"
)

// ExportFlags are specific to export command.
func ExportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "to",
			Usage: "export `FORMAT` (supported formats: " + strings.Join(common.ExportFmtNames(), ", ") + "), configuration value if not set"},
		&cli.FloatFlag{Name: "scale", Usage: "scale `FACTOR` for png images, configuration value if not set"},
	}
}

// exportOptions merges command line with configuration.
func exportOptions(cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) export.Options {
	opts := export.Options{
		Format:        env.Cfg.Export.Format,
		NameTemplate:  env.Cfg.Export.OutputNameTemplate,
		Transliterate: env.Cfg.Export.FileNameTransliterate,
		Scale:         env.Cfg.Export.Scale,
		Width:         env.Cfg.View.Width,
	}
	if name := cmd.String("to"); len(name) > 0 {
		format, err := common.ParseExportFmt(name)
		if err != nil {
			log.Warn("Unknown export format requested, using configured one", zap.String("format", name), zap.Stringer("using", opts.Format), zap.Error(err))
		} else {
			opts.Format = format
		}
	}
	if cmd.IsSet("width") {
		opts.Width = cmd.Int("width")
	}
	if cmd.IsSet("scale") {
		opts.Scale = cmd.Float("scale")
	}
	return opts
}

// exporter returns function writing grids of the source into directory.
func exporter(dir, src string, opts export.Options) func(grid *render.Grid, region table.ChunkRegion) (string, error) {
	return func(grid *render.Grid, region table.ChunkRegion) (string, error) {
		return export.Write(dir, grid, export.Meta{Source: src, Region: region}, opts)
	}
}

// Export saves single chunk into file under destination directory.
func Export(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	src, err := sourceName(cmd, env)
	if err != nil {
		return err
	}
	opts := exportOptions(cmd, env, log)

	log.Info("Export starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", opts.Format))
	defer func(start time.Time) {
		log.Info("Export completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, grid, req, err := load(ctx, cmd, "export")
	if err != nil {
		return err
	}
	path, err := exporter(dst, src, opts)(grid, req.Region)
	if err != nil {
		return fmt.Errorf("unable to export %s: %w", req.Region, err)
	}
	log.Info("Chunk exported", zap.String("file", path))
	return nil
}

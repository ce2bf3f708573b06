package present

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tblview/loader"
	"tblview/state"
	"tblview/tui"
)

// View runs interactive viewer.
func View(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("view")

	name, err := sourceName(cmd, env)
	if err != nil {
		return err
	}
	dst := cmd.String("output")
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	req, err := chunkRequest(cmd, env)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, name, env)
	if err != nil {
		return fmt.Errorf("unable to open table source: %w", err)
	}
	defer src.Close()

	rows, columns, err := src.Size(ctx)
	if err != nil {
		log.Warn("Unable to get table size, navigation is not limited", zap.Error(err))
		rows, columns = -1, -1
	}

	width := env.Cfg.View.Width
	if cmd.IsSet("width") {
		width = cmd.Int("width")
	}
	opts := tui.Options{
		Title:               filepath.Base(name),
		Fingerprint:         src.Fingerprint().String(),
		Rows:                rows,
		Columns:             columns,
		ChunkRows:           req.Region.Rows,
		ChunkColumns:        req.Region.Columns,
		FirstRow:            req.Region.FirstRow,
		FirstColumn:         req.Region.FirstColumn,
		ExcludeRowHeader:    req.ExcludeRowHeader,
		ExcludeColumnHeader: req.ExcludeColumnHeader,
		Render:              renderOptions(cmd, env, log),
		Width:               width,
		Export:              exporter(dst, name, exportOptions(cmd, env, log)),
	}

	// program is not known until loader is created, messages produced before
	// it is attached are dropped and nothing is requested before Start
	bridge := tui.NewBridge(nil)
	l := loader.New(src, bridge, loaderOptions(cmd, env), env.Log)
	defer func() {
		l.Dispose()
		<-l.Done()
	}()

	p := tea.NewProgram(tui.New(l, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p.Send)
	l.Start(ctx)

	log.Info("Viewer starting", zap.String("source", name), zap.Int("rows", rows), zap.Int("columns", columns))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer failed: %w", err)
	}
	log.Info("Viewer ended", zap.Duration("elapsed", env.Uptime()))
	return nil
}

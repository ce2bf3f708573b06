package present

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"tblview/render"
)

// Render prints single chunk to standard output.
func Render(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, grid, _, err := load(ctx, cmd, "render")
	if err != nil {
		return err
	}
	width := env.Cfg.View.Width
	if cmd.IsSet("width") {
		width = cmd.Int("width")
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, render.Text(grid, width))
	return err
}

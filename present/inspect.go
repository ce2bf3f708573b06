package present

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tblview/loader"
	"tblview/source"
	"tblview/state"
	"tblview/table"
	"tblview/utils/debug"
)

func labelTexts(labels []table.HeaderLabel, sep string) []string {
	if labels == nil {
		return nil
	}
	texts := make([]string, len(labels))
	for i, l := range labels {
		texts[i] = l.Text(sep)
	}
	return texts
}

func dumpSource(tw *debug.TreeWriter, name string, src source.Source, rows, columns int) {
	tw.Line(0, "Source")
	tw.TextBlock(1, "Name", name)
	tw.Line(1, "Fingerprint: %s", src.Fingerprint())
	if rows < 0 || columns < 0 {
		tw.Line(1, "Size: unknown")
	} else {
		tw.Line(1, "Size: %d rows, %d columns", rows, columns)
	}
}

func dumpChunk(tw *debug.TreeWriter, req loader.LoadRequest, chunk *table.Chunk, values table.ChunkValues, sep string) {
	tw.Line(0, "Chunk: %s", req.Region)
	tw.Line(1, "Excluded headers: rows %t, columns %t", req.ExcludeRowHeader, req.ExcludeColumnHeader)

	tw.Line(1, "Legend")
	tw.TextBlock(2, "Index", chunk.Legend.Index.Text(sep))
	tw.TextBlock(2, "Columns", chunk.Legend.Columns.Text(sep))

	tw.List(1, "Column labels", labelTexts(chunk.ColumnLabels, sep))
	if chunk.RowLabels == nil {
		tw.Line(1, "Row labels: none")
	} else {
		tw.List(1, "Row labels", labelTexts(chunk.RowLabels, sep))
	}

	data, styled := chunk.Values, values != nil
	if styled {
		data = values
	}
	tw.Line(1, "Values [%d x %d] styled %t", len(data), data.Columns(), styled)
	for r, row := range data {
		tw.Line(2, "Row %d", req.Region.FirstRow+r)
		for c, v := range row {
			if v.Style == nil || v.Style.IsEmpty() {
				tw.TextBlock(3, fmt.Sprintf("%d", req.Region.FirstColumn+c), v.Text)
				continue
			}
			tw.TextBlock(3, fmt.Sprintf("%d {%s}", req.Region.FirstColumn+c, v.Style), v.Text)
		}
	}
}

// Inspect prints structure of the source and of single chunk.
func Inspect(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	name, err := sourceName(cmd, env)
	if err != nil {
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
		log.Warn("Unable to get table size", zap.Error(err))
		rows, columns = -1, -1
	}

	tw := debug.NewTreeWriter()
	dumpSource(tw, name, src, rows, columns)

	chunk, values, err := fetch(ctx, src, req, loaderOptions(cmd, env), env.Log)
	if err != nil {
		return fmt.Errorf("unable to load %s: %w", req.Region, err)
	}
	dumpChunk(tw, req, chunk, values, env.Cfg.View.HeaderSeparator)

	if env.Rpt != nil {
		env.Rpt.StoreData("inspect.txt", []byte(tw.String()))
	}
	_, err = fmt.Fprint(cmd.Root().Writer, tw.String())
	return err
}

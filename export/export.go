package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"tblview/common"
	"tblview/config"
	"tblview/render"
	"tblview/table"
)

// Meta describes where exported grid comes from.
type Meta struct {
	Source string
	Region table.ChunkRegion
}

// Options of a single export.
type Options struct {
	Format        common.ExportFmt
	NameTemplate  string
	Transliterate bool
	Scale         float64 // png only
	Width         int     // text only
}

// Values is a struct that holds variables available for output name
// template expansion.
type Values struct {
	Source      string
	Format      string
	FirstRow    int
	FirstColumn int
	Rows        int
	Columns     int
}

// Encode writes grid in requested format.
func Encode(out io.Writer, g *render.Grid, meta Meta, opts Options) error {
	switch opts.Format {
	case common.ExportFmtText:
		_, err := io.WriteString(out, render.Text(g, opts.Width)+"\n")
		return err
	case common.ExportFmtSvg:
		_, err := SVG(g).WriteTo(out)
		return err
	case common.ExportFmtPng:
		return PNG(out, g, opts.Scale)
	case common.ExportFmtIon:
		return Ion(out, g, meta)
	default:
		return fmt.Errorf("unsupported export format %s", opts.Format)
	}
}

// Write exports grid into file under dir and returns its path.
func Write(dir string, g *render.Grid, meta Meta, opts Options) (string, error) {
	name, err := OutputName(meta, opts)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := Encode(buf, g, meta, opts); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("unable to write output: %w", err)
	}
	return path, nil
}

// OutputName returns relative file name for exported chunk. Without template
// name is built from source name and region origin. Expanded template may
// contain forward slashes to put output into subdirectories.
func OutputName(meta Meta, opts Options) (string, error) {
	base := filepath.Base(meta.Source)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if len(opts.NameTemplate) == 0 {
		name := fmt.Sprintf("%s-r%d-c%d", base, meta.Region.FirstRow, meta.Region.FirstColumn)
		if opts.Transliterate {
			name = slug.Make(name)
		}
		return config.CleanFileName(name) + opts.Format.Ext(), nil
	}

	tmpl, err := template.New(string(config.OutputNameTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(opts.NameTemplate)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", config.OutputNameTemplateFieldName, err)
	}
	values := Values{
		Source:      base,
		Format:      opts.Format.String(),
		FirstRow:    meta.Region.FirstRow,
		FirstColumn: meta.Region.FirstColumn,
		Rows:        meta.Region.Rows,
		Columns:     meta.Region.Columns,
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template field %s: %w", config.OutputNameTemplateFieldName, err)
	}

	var parts []string
	for _, p := range strings.Split(buf.String(), "/") {
		p = strings.TrimSpace(p)
		if len(p) == 0 || p == "." || p == ".." {
			continue
		}
		if opts.Transliterate {
			p = slug.Make(p)
		}
		parts = append(parts, config.CleanFileName(p))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("template field %s expanded to empty name", config.OutputNameTemplateFieldName)
	}
	return filepath.Join(parts...) + opts.Format.Ext(), nil
}

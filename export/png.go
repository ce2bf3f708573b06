package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"tblview/render"
)

// ErrEmptyGrid is returned when there is nothing to draw.
var ErrEmptyGrid = errors.New("grid has no cells")

// maxRasterDim limits picture side in pixels. Scaled pictures are clamped
// to it, larger grids are refused.
var maxRasterDim = 8192

// rasterize draws cell rectangles of the SVG document. Text elements are not
// supported by oksvg and are skipped.
func rasterize(svg []byte, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("unable to read svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: pageColor}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}

// drawText puts cell texts on the picture with fixed 7x13 face. Glyphs
// missing from the face are left blank.
func drawText(dst draw.Image, geo geometry) {
	d := &font.Drawer{Dst: dst, Face: basicfont.Face7x13}
	for _, b := range geo.boxes {
		if len(b.cell.Text) == 0 {
			continue
		}
		x, y := b.textOrigin()
		d.Src = image.NewUniform(b.foreground())
		d.Dot = fixed.P(x, y)
		d.DrawString(b.cell.Text)
		if b.cell.Header {
			// poor man's bold
			d.Dot = fixed.P(x+1, y)
			d.DrawString(b.cell.Text)
		}
	}
}

// Image renders grid into picture. Scale enlarges (or shrinks) the result,
// values not above zero mean 1.
func Image(g *render.Grid, scale float64) (image.Image, error) {
	geo := measure(g)
	if geo.width == 0 || geo.height == 0 {
		return nil, ErrEmptyGrid
	}
	if geo.width > maxRasterDim || geo.height > maxRasterDim {
		return nil, fmt.Errorf("table picture is too large: %dx%d", geo.width, geo.height)
	}

	buf := new(bytes.Buffer)
	if _, err := SVG(g).WriteTo(buf); err != nil {
		return nil, err
	}
	img, err := rasterize(buf.Bytes(), geo.width, geo.height)
	if err != nil {
		return nil, err
	}
	drawText(img, geo)

	if scale <= 0 || scale == 1 {
		return img, nil
	}
	w := int(math.Round(float64(geo.width) * scale))
	h := int(math.Round(float64(geo.height) * scale))
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w, h = int(float64(w)*s), int(float64(h)*s)
	}
	return imaging.Resize(img, max(w, 1), max(h, 1), imaging.Lanczos), nil
}

// PNG encodes grid picture.
func PNG(out io.Writer, g *render.Grid, scale float64) error {
	img, err := Image(g, scale)
	if err != nil {
		return err
	}
	if err := imaging.Encode(out, img, imaging.PNG); err != nil {
		return fmt.Errorf("unable to encode png: %w", err)
	}
	return nil
}

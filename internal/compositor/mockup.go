package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
)

var (
	canvasBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	placeholderFill  = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderEdge  = color.NRGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	labelInk         = color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
)

// Renderer produces deterministic raster output: same inputs, same bytes.
type Renderer struct {
	table      *Table
	canvasSize int
}

// NewRenderer builds a renderer over the given geometry table.
func NewRenderer(table *Table, canvasSize int) *Renderer {
	if table == nil {
		table = DefaultTable()
	}
	if canvasSize <= 0 {
		canvasSize = referenceCanvas
	}
	return &Renderer{table: table, canvasSize: canvasSize}
}

// MockupInput describes one mockup render.
type MockupInput struct {
	Template  string
	Area      string
	Schematic image.Image
	// Design holds the uploaded asset bytes. A payload that does not decode
	// as a raster image (vector/PDF uploads) renders as a labeled
	// placeholder instead of failing the whole order.
	Design []byte
	Label  string
}

// RenderMockup composites the design onto the product schematic at the
// configured placement for the print area.
func (r *Renderer) RenderMockup(in MockupInput) (image.Image, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, r.canvasSize, r.canvasSize))
	fill(canvas, canvas.Bounds(), canvasBackground)

	if in.Schematic != nil {
		drawContained(canvas, canvas.Bounds(), in.Schematic)
	}

	rect, rotateDeg, ok := r.table.Placement(in.Template, in.Area, r.canvasSize, r.canvasSize)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown print area "+in.Area)
	}

	design, err := decodeDesign(in.Design)
	if err != nil {
		drawPlaceholder(canvas, rect, placeholderLabel(in))
		return canvas, nil
	}

	if rotateDeg == 0 {
		drawContained(canvas, rect, design)
	} else {
		scaled := scaleContained(design, rect.Dx(), rect.Dy())
		drawRotated(canvas, rect, scaled, rotateDeg)
	}
	return canvas, nil
}

// EncodePNG serializes an image deterministically.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func decodeDesign(payload []byte) (image.Image, error) {
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeAssetDecode, "empty design payload")
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAssetDecode, err, "decode design")
	}
	return img, nil
}

func placeholderLabel(in MockupInput) string {
	if in.Label != "" {
		return in.Label
	}
	return in.Area
}

func fill(dst *image.NRGBA, bounds image.Rectangle, c color.NRGBA) {
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.SetNRGBA(x, y, c)
		}
	}
}

// drawContained scales src to fit inside bounds preserving aspect ratio and
// centers it.
func drawContained(dst *image.NRGBA, bounds image.Rectangle, src image.Image) {
	target := containRect(bounds, src.Bounds())
	xdraw.CatmullRom.Scale(dst, target, src, src.Bounds(), xdraw.Over, nil)
}

// scaleContained returns src scaled to fit inside a w x h box.
func scaleContained(src image.Image, w, h int) *image.NRGBA {
	box := containRect(image.Rect(0, 0, w, h), src.Bounds())
	scaled := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return scaled
}

// containRect computes the centered contain-fit of src within outer.
func containRect(outer image.Rectangle, src image.Rectangle) image.Rectangle {
	ow, oh := outer.Dx(), outer.Dy()
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 || ow == 0 || oh == 0 {
		return outer
	}

	scale := math.Min(float64(ow)/float64(sw), float64(oh)/float64(sh))
	w := int(math.Round(float64(sw) * scale))
	h := int(math.Round(float64(sh) * scale))

	x := outer.Min.X + (ow-w)/2
	y := outer.Min.Y + (oh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// drawRotated paints src rotated by angleDeg about the center of rect,
// clipped to rect. Nearest-neighbor sampling keeps the output deterministic.
func drawRotated(dst *image.NRGBA, rect image.Rectangle, src *image.NRGBA, angleDeg float64) {
	angle := angleDeg * math.Pi / 180
	sin, cos := math.Sincos(angle)

	cx := float64(rect.Min.X+rect.Max.X) / 2
	cy := float64(rect.Min.Y+rect.Max.Y) / 2

	srcW := float64(src.Bounds().Dx())
	srcH := float64(src.Bounds().Dy())

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			// Inverse-rotate the destination pixel into design space.
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			sx := dx*cos + dy*sin + srcW/2
			sy := -dx*sin + dy*cos + srcH/2

			if sx < 0 || sy < 0 || sx >= srcW || sy >= srcH {
				continue
			}
			c := src.NRGBAAt(int(sx), int(sy))
			if c.A == 0 {
				continue
			}
			dst.SetNRGBA(x, y, blendOver(dst.NRGBAAt(x, y), c))
		}
	}
}

func blendOver(under, over color.NRGBA) color.NRGBA {
	if over.A == 0xff {
		return over
	}
	a := uint32(over.A)
	ia := 0xff - a
	return color.NRGBA{
		R: uint8((uint32(over.R)*a + uint32(under.R)*ia) / 0xff),
		G: uint8((uint32(over.G)*a + uint32(under.G)*ia) / 0xff),
		B: uint8((uint32(over.B)*a + uint32(under.B)*ia) / 0xff),
		A: 0xff,
	}
}

// drawPlaceholder renders the neutral panel used when a design cannot be
// rasterized.
func drawPlaceholder(dst *image.NRGBA, rect image.Rectangle, label string) {
	fill(dst, rect, placeholderFill)
	strokeRect(dst, rect, placeholderEdge)

	text := "NO PREVIEW"
	if label != "" {
		text = "NO PREVIEW: " + label
	}
	drawLabelCentered(dst, rect, text)
}

func strokeRect(dst *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		dst.SetNRGBA(x, rect.Min.Y, c)
		dst.SetNRGBA(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		dst.SetNRGBA(rect.Min.X, y, c)
		dst.SetNRGBA(rect.Max.X-1, y, c)
	}
}

func drawLabelCentered(dst *image.NRGBA, rect image.Rectangle, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width > rect.Dx()-8 {
		for len(text) > 1 && font.MeasureString(face, text+"...").Ceil() > rect.Dx()-8 {
			text = text[:len(text)-1]
		}
		text += "..."
	}

	x := rect.Min.X + (rect.Dx()-font.MeasureString(face, text).Ceil())/2
	y := rect.Min.Y + rect.Dy()/2 + face.Metrics().Ascent.Ceil()/2

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelInk),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// drawLabelAt paints left-aligned text at the given baseline origin.
func drawLabelAt(dst *image.NRGBA, x, y int, text string) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelInk),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

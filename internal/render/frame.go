// Package render draws the hill, the boulder and the overlay into an RGBA
// frame. Frames are a pure function of a snapshot and a random source; the
// stars are regenerated on every frame so they flicker.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"math/rand"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
)

// Frame dimensions.
const (
	Width  = 800
	Height = 400
)

const (
	starCount      = 100
	starMaxRadius  = 1.5
	starFieldRatio = 0.7
	boulderRadius  = 25
	hillStroke     = 3
	hillSegments   = 64
)

var (
	skyTop        = color.RGBA{0x0a, 0x0a, 0x2a, 0xff}
	skyBottom     = color.RGBA{0x00, 0x00, 0x00, 0xff}
	hillLine      = color.RGBA{0x33, 0x33, 0x33, 0xff}
	hillFill      = color.RGBA{0x22, 0x22, 0x22, 0xff}
	boulderLight  = color.RGBA{0x66, 0x66, 0x66, 0xff}
	boulderDark   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	boulderShadow = color.NRGBA{0x00, 0x00, 0x00, 0x4d}
	figureBody    = color.RGBA{0x00, 0xaa, 0xff, 0xff}
	figureHead    = color.RGBA{0x00, 0x66, 0xaa, 0xff}
	ascendColor   = color.RGBA{0x00, 0xff, 0x88, 0xff}
	descendColor  = color.RGBA{0xff, 0x44, 0x44, 0xff}
)

// Point is a position in frame coordinates.
type Point struct {
	X, Y float64
}

// Hill is the quadratic Bézier the boulder travels along.
var Hill = Curve{
	Start:   Point{50, 350},
	Control: Point{400, 100},
	End:     Point{750, 350},
}

// Curve is a quadratic Bézier.
type Curve struct {
	Start, Control, End Point
}

// At returns the point for t in [0,1]. t is clamped.
func (c Curve) At(t float64) Point {
	t = math.Max(0, math.Min(1, t))
	u := 1 - t
	return Point{
		X: u*u*c.Start.X + 2*u*t*c.Control.X + t*t*c.End.X,
		Y: u*u*c.Start.Y + 2*u*t*c.Control.Y + t*t*c.End.Y,
	}
}

// tangent returns the derivative at t.
func (c Curve) tangent(t float64) Point {
	u := 1 - t
	return Point{
		X: 2*u*(c.Control.X-c.Start.X) + 2*t*(c.End.X-c.Control.X),
		Y: 2*u*(c.Control.Y-c.Start.Y) + 2*t*(c.End.Y-c.Control.Y),
	}
}

// Frame renders one frame of the snapshot.
func Frame(s engine.Snapshot, rng *rand.Rand) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))

	drawSky(img)
	drawStars(img, rng)
	drawHill(img)

	b := Hill.At(s.Boulder.Progress)
	drawBoulder(img, b)
	drawFigure(img, b)
	drawOverlay(img, s)

	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

func drawSky(img *image.RGBA) {
	for y := 0; y < Height; y++ {
		c := lerp(skyTop, skyBottom, float64(y)/float64(Height-1))
		draw.Draw(img, image.Rect(0, y, Width, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

func drawStars(img *image.RGBA, rng *rand.Rand) {
	for i := 0; i < starCount; i++ {
		x := rng.Float64() * Width
		y := rng.Float64() * Height * starFieldRatio
		r := rng.Float64() * starMaxRadius
		fill(img, color.White, func(z *vector.Rasterizer) { circle(z, x, y, r) })
	}
}

func drawHill(img *image.RGBA) {
	fill(img, hillFill, func(z *vector.Rasterizer) {
		z.MoveTo(float32(Hill.Start.X), float32(Hill.Start.Y))
		z.QuadTo(float32(Hill.Control.X), float32(Hill.Control.Y), float32(Hill.End.X), float32(Hill.End.Y))
		z.LineTo(float32(Hill.End.X), Height)
		z.LineTo(float32(Hill.Start.X), Height)
		z.ClosePath()
	})
	fill(img, hillLine, func(z *vector.Rasterizer) { strokeCurve(z, Hill, hillStroke) })
}

// drawBoulder shades the boulder, then lays a translucent shadow over it.
func drawBoulder(img *image.RGBA, at Point) {
	z := vector.NewRasterizer(Width, Height)
	circle(z, at.X, at.Y, boulderRadius)
	z.Draw(img, img.Bounds(), boulderGradient(at), image.Point{})

	fill(img, boulderShadow, func(z *vector.Rasterizer) { circle(z, at.X+3, at.Y+3, boulderRadius) })
}

func boulderGradient(at Point) *radialGradient {
	return &radialGradient{
		center: Point{at.X - boulderRadius/3, at.Y - boulderRadius/3},
		radius: boulderRadius * 1.3,
		inner:  boulderLight,
		outer:  boulderDark,
	}
}

func drawFigure(img *image.RGBA, boulder Point) {
	x, y := boulder.X-40, boulder.Y-10
	fill(img, figureBody, func(z *vector.Rasterizer) {
		z.MoveTo(float32(x), float32(y))
		z.LineTo(float32(x+20), float32(y))
		z.LineTo(float32(x+20), float32(y+30))
		z.LineTo(float32(x), float32(y+30))
		z.ClosePath()
	})
	fill(img, figureHead, func(z *vector.Rasterizer) { circle(z, x+10, y-10, 8) })
}

func drawOverlay(img *image.RGBA, s engine.Snapshot) {
	direction, c := "v DESCENDING", descendColor
	if s.Boulder.RollingUp {
		direction, c = "^ ASCENDING", ascendColor
	}

	text(img, 20, 30, fmt.Sprintf("Cycle: %d", s.Cycle), color.White)
	text(img, 20, 50, fmt.Sprintf("Despair: %d%%", s.Metrics.Percent(sisyphus.MetricDespair)), color.White)
	text(img, 20, 70, direction, c)
}

func text(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// fill rasterizes one path and composites it over img.
func fill(img *image.RGBA, c color.Color, path func(*vector.Rasterizer)) {
	z := vector.NewRasterizer(Width, Height)
	path(z)
	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}

// circleKappa places cubic control points so four arcs approximate a circle.
const circleKappa = 0.5522847498

func circle(z *vector.Rasterizer, cx, cy, r float64) {
	if r <= 0 {
		return
	}
	k := r * circleKappa
	f := func(v float64) float32 { return float32(v) }

	z.MoveTo(f(cx+r), f(cy))
	z.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
	z.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
	z.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
	z.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	z.ClosePath()
}

// strokeCurve outlines c with the given width as one closed polygon.
func strokeCurve(z *vector.Rasterizer, c Curve, width float64) {
	half := width / 2
	left := make([]Point, 0, hillSegments+1)
	right := make([]Point, 0, hillSegments+1)
	for i := 0; i <= hillSegments; i++ {
		t := float64(i) / hillSegments
		p, d := c.At(t), c.tangent(t)
		n := math.Hypot(d.X, d.Y)
		nx, ny := -d.Y/n*half, d.X/n*half
		left = append(left, Point{p.X + nx, p.Y + ny})
		right = append(right, Point{p.X - nx, p.Y - ny})
	}

	z.MoveTo(float32(left[0].X), float32(left[0].Y))
	for _, p := range left[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	for i := len(right) - 1; i >= 0; i-- {
		z.LineTo(float32(right[i].X), float32(right[i].Y))
	}
	z.ClosePath()
}

// radialGradient is an image.Image shading from inner at center to outer at radius.
type radialGradient struct {
	center       Point
	radius       float64
	inner, outer color.RGBA
}

func (g *radialGradient) ColorModel() color.Model { return color.RGBAModel }

func (g *radialGradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *radialGradient) At(x, y int) color.Color {
	d := math.Hypot(float64(x)+0.5-g.center.X, float64(y)+0.5-g.center.Y)
	return lerp(g.inner, g.outer, d/g.radius)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

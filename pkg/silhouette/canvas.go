package silhouette

import (
	"image"
	"image/color"
	"math"
	"slices"
)

var (
	white = color.Gray{Y: 255}
	black = color.Gray{Y: 0}
)

type point struct {
	X, Y float64
}

// canvas draws hard-edged shapes onto a grayscale image. A pixel is covered
// when its center lies inside the shape, so no midtones are ever produced.
type canvas struct {
	img  *image.Gray
	ink  color.Gray
	w, h int
}

func newCanvas(w, h int) *canvas {
	img := image.NewGray(image.Rect(0, 0, w, h))
	// image.NewGray starts zeroed, which is already solid black.
	return &canvas{img: img, ink: white, w: w, h: h}
}

// paint switches to white ink.
func (c *canvas) paint() { c.ink = white }

// cut switches to black ink, erasing what is underneath.
func (c *canvas) cut() { c.ink = black }

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.img.SetGray(x, y, c.ink)
}

// span returns the pixel index range whose centers fall within [lo, hi).
func span(lo, hi float64, limit int) (int, int) {
	from := max(0, int(math.Ceil(lo-0.5)))
	to := min(limit, int(math.Ceil(hi-0.5)))
	return from, to
}

func (c *canvas) rect(x, y, w, h float64) {
	x0, x1 := span(x, x+w, c.w)
	y0, y1 := span(y, y+h, c.h)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			c.set(px, py)
		}
	}
}

func (c *canvas) circle(cx, cy, r float64) {
	if r <= 0 {
		return
	}
	x0, x1 := span(cx-r, cx+r, c.w)
	y0, y1 := span(cy-r, cy+r, c.h)
	r2 := r * r
	for py := y0; py < y1; py++ {
		dy := float64(py) + 0.5 - cy
		for px := x0; px < x1; px++ {
			dx := float64(px) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				c.set(px, py)
			}
		}
	}
}

func (c *canvas) triangle(a, b, d point) {
	c.polygon([]point{a, b, d})
}

// polygon fills a closed polygon with the even-odd rule, one scanline per
// pixel row sampled at the row center.
func (c *canvas) polygon(pts []point) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	y0, y1 := span(minY, maxY, c.h)

	xs := make([]float64, 0, len(pts))
	for py := y0; py < y1; py++ {
		sy := float64(py) + 0.5
		xs = xs[:0]
		for i := range pts {
			p, q := pts[i], pts[(i+1)%len(pts)]
			if (p.Y <= sy && q.Y > sy) || (q.Y <= sy && p.Y > sy) {
				xs = append(xs, p.X+(sy-p.Y)/(q.Y-p.Y)*(q.X-p.X))
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := span(xs[i], xs[i+1], c.w)
			for px := x0; px < x1; px++ {
				c.set(px, py)
			}
		}
	}
}

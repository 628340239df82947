// sketch.go - Synthetische Gesichtsskizze fuer Tests und Demos
//
// Dieses Modul enthaelt:
// - Face: zeichnet schwarze Striche auf weissen Grund
// - stroke-Helfer fuer Linien, Ellipsen und Boegen mit Strichbreite
//
// Koordinaten sind fuer eine 256er Leinwand angegeben und werden skaliert.
package sketch

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// DefaultSize ist die Kantenlaenge, fuer die die Koordinaten gelten
const DefaultSize = 256

// ellipseSegments bestimmt die Genauigkeit von Ellipsen und Boegen
const ellipseSegments = 96

// box ist ein Begrenzungsrechteck (x0, y0, x1, y1)
type box [4]float32

// stroke zeichnet sich selbst in den Rasterizer
type stroke interface {
	path(z *vector.Rasterizer, scale float32)
}

// line ist eine gerade Linie mit Breite
type line struct {
	x0, y0, x1, y1 float32
	width          float32
}

// ellipse ist der Umriss einer Ellipse, die Breite liegt innerhalb der Box
type ellipse struct {
	b     box
	width float32
}

// arc ist ein Ellipsenbogen von start bis end in Grad, im Uhrzeigersinn ab 3 Uhr
type arc struct {
	b          box
	start, end float64
	width      float32
}

// face ist die Skizze: Oval, Augen, Nase, Mund und zehn Haarstriche
var face = func() []stroke {
	strokes := []stroke{
		ellipse{box{50, 40, 206, 200}, 3},

		// Augen
		ellipse{box{70, 90, 90, 110}, 2},
		ellipse{box{166, 90, 186, 110}, 2},

		// Nase
		line{128, 110, 128, 140, 2},
		line{118, 140, 128, 140, 2},
		line{128, 140, 138, 140, 2},

		// Mund
		arc{box{100, 150, 156, 180}, 0, 180, 3},
	}

	// Haare
	for i := range 10 {
		x := float32(60 + i*15)
		strokes = append(strokes, line{x, 40, x + 5, 20, 2})
	}
	return strokes
}()

// Face zeichnet die Skizze auf einer size x size Leinwand. size <= 0
// bedeutet DefaultSize.
func Face(size int) *image.RGBA {
	if size <= 0 {
		size = DefaultSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	scale := float32(size) / DefaultSize
	z := vector.NewRasterizer(size, size)
	for _, s := range face {
		// jeder Strich eigener Pfad, damit sich Windungen nicht aufheben
		z.Reset(size, size)
		s.path(z, scale)
		z.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{})
	}
	return dst
}

func (l line) path(z *vector.Rasterizer, scale float32) {
	x0, y0, x1, y1 := l.x0*scale, l.y0*scale, l.x1*scale, l.y1*scale
	hw := max(l.width*scale, 1) / 2

	dx, dy := x1-x0, y1-y0
	n := float32(math.Hypot(float64(dx), float64(dy)))
	if n == 0 {
		return
	}
	// Normale und Verlaengerung um die halbe Breite fuer saubere Enden
	nx, ny := -dy/n*hw, dx/n*hw
	ex, ey := dx/n*hw, dy/n*hw

	z.MoveTo(x0-ex+nx, y0-ey+ny)
	z.LineTo(x1+ex+nx, y1+ey+ny)
	z.LineTo(x1+ex-nx, y1+ey-ny)
	z.LineTo(x0-ex-nx, y0-ey-ny)
	z.ClosePath()
}

func (e ellipse) path(z *vector.Rasterizer, scale float32) {
	arc{b: e.b, start: 0, end: 360, width: e.width}.ring(z, scale, true)
}

func (a arc) path(z *vector.Rasterizer, scale float32) {
	a.ring(z, scale, false)
}

// ring zeichnet den Bereich zwischen aeusserem Bogen und dem um width
// eingerueckten inneren Bogen. closed trennt Aussen- und Innenkontur.
func (a arc) ring(z *vector.Rasterizer, scale float32, closed bool) {
	cx := (a.b[0] + a.b[2]) / 2 * scale
	cy := (a.b[1] + a.b[3]) / 2 * scale
	rx := (a.b[2] - a.b[0]) / 2 * scale
	ry := (a.b[3] - a.b[1]) / 2 * scale
	w := max(a.width*scale, 1)

	point := func(deg float64, rx, ry float32) (float32, float32) {
		rad := deg * math.Pi / 180
		return cx + rx*float32(math.Cos(rad)), cy + ry*float32(math.Sin(rad))
	}

	n := max(int(float64(ellipseSegments)*(a.end-a.start)/360), 2)
	step := (a.end - a.start) / float64(n)

	// aussen vorwaerts
	z.MoveTo(point(a.start, rx, ry))
	for i := 1; i <= n; i++ {
		z.LineTo(point(a.start+float64(i)*step, rx, ry))
	}

	irx, iry := max(rx-w, 0), max(ry-w, 0)
	if closed {
		// Vollellipse: innere Kontur gegenlaeufig als eigener Pfad
		z.ClosePath()
		z.MoveTo(point(a.end, irx, iry))
	}

	// innen rueckwaerts
	for i := n; i >= 0; i-- {
		z.LineTo(point(a.start+float64(i)*step, irx, iry))
	}
	z.ClosePath()
}

// MODUL: postprocess
// ZWECK: Postprocess - Generator-Ausgabe zurueck in ein 8-Bit-RGB-Bild
// INPUT: *ml.Tensor (1, 3, 256, 256), nominell in [-1, 1]
// OUTPUT: *RGBImage 256x256, HWC, 3 Kanaele
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/pdevine/tensor (CHW -> HWC), internes ml-Paket
// HINWEISE: Werte werden geklemmt, NaN/Inf fuehren zu ErrNonFinite.
//           uint8-Konvertierung schneidet ab (kein Runden).

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/pdevine/tensor"

	"github.com/sketch2face/sketch2face/ml"
)

var (
	// ErrNonFinite: Ausgabe enthaelt NaN oder +-Inf
	ErrNonFinite = errors.New("vision: ausgabe enthaelt nicht-endliche werte")

	// ErrTensorShape: Ausgabe ist nicht (1, 3, 256, 256)
	ErrTensorShape = fmt.Errorf("vision: tensor shape: %w", ml.ErrShapeMismatch)
)

// Postprocess wandelt die Generator-Ausgabe in ein Bild.
func Postprocess(t *ml.Tensor) (*RGBImage, error) {
	if t == nil || !t.HasShape(1, 3, Size, Size) {
		var got []int
		if t != nil {
			got = t.Shape()
		}
		return nil, fmt.Errorf("%w: got %v, want [1 3 %d %d]", ErrTensorShape, got, Size, Size)
	}
	if !t.Finite() {
		return nil, ErrNonFinite
	}

	// Batch-Dimension entfaellt, danach x*0.5+0.5 und Klemmen auf [0, 1]
	chw := make([]float32, 3*Size*Size)
	for i, v := range t.Data() {
		chw[i] = min(max(v*0.5+0.5, 0), 1)
	}

	hwc, err := toHWC(chw, 3, Size, Size)
	if err != nil {
		return nil, err
	}

	img := NewRGBImage(image.Rect(0, 0, Size, Size))
	for i, v := range hwc {
		img.Pix[i] = uint8(v * 255)
	}
	return img, nil
}

// toHWC ordnet (c, h, w) nach (h, w, c) um.
func toHWC(chw []float32, c, h, w int) ([]float32, error) {
	d := tensor.New(tensor.WithShape(c, h, w), tensor.WithBacking(chw))
	if err := d.T(1, 2, 0); err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}
	if err := d.Transpose(); err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}

	hwc, ok := d.Data().([]float32)
	if !ok || len(hwc) != c*h*w {
		return nil, fmt.Errorf("transpose: unexpected backing %T", d.Data())
	}
	return hwc, nil
}

// =============================================================================
// RGBImage
// =============================================================================

// RGBImage ist ein 8-Bit-RGB-Bild ohne Alpha, Pixel in HWC-Reihenfolge.
type RGBImage struct {
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3 : ... + 3] = R, G, B
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGBImage erstellt ein schwarzes Bild der Groesse r.
func NewRGBImage(r image.Rectangle) *RGBImage {
	return &RGBImage{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

func (p *RGBImage) ColorModel() color.Model { return color.RGBAModel }

func (p *RGBImage) Bounds() image.Rectangle { return p.Rect }

func (p *RGBImage) At(x, y int) color.Color {
	r, g, b := p.RGBAt(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// RGBAt gibt die drei Kanaele an (x, y) zurueck, ausserhalb 0.
func (p *RGBImage) RGBAt(x, y int) (r, g, b uint8) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0, 0, 0
	}
	i := (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2]
}

// NRGBA kopiert das Bild in ein deckendes *image.NRGBA. Die Standard-Encoder
// haben dafuer schnelle Pfade.
func (p *RGBImage) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(p.Rect)
	w, h := p.Rect.Dx(), p.Rect.Dy()
	for y := range h {
		src := p.Pix[y*p.Stride : y*p.Stride+w*3]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := range w {
			copy(row[x*4:x*4+3], src[x*3:x*3+3])
			row[x*4+3] = 0xff
		}
	}
	return dst
}

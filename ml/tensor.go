// tensor.go - 4D-Tensor im NCHW-Layout fuer die CPU-Inferenz
//
// Dieses Modul enthaelt:
// - Tensor: float32-Array mit Form (Batch, Kanal, Hoehe, Breite)
// - Concat: Verkettung entlang der Kanal-Achse (Skip-Verbindungen)
// - ErrShapeMismatch: Fehler bei inkompatiblen Formen
package ml

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrShapeMismatch wird zurueckgegeben wenn Tensor-Formen nicht zusammenpassen
var ErrShapeMismatch = errors.New("ml: shape mismatch")

// Tensor ist ein dichter float32-Tensor im NCHW-Layout (row-major).
type Tensor struct {
	n, c, h, w int
	data       []float32
}

// New allokiert einen mit Nullen gefuellten Tensor.
func New(n, c, h, w int) *Tensor {
	return &Tensor{n: n, c: c, h: h, w: w, data: make([]float32, n*c*h*w)}
}

// FromData erzeugt einen Tensor ueber einem bestehenden Backing-Slice.
// Der Slice wird nicht kopiert.
func FromData(data []float32, n, c, h, w int) (*Tensor, error) {
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%dx%dx%d", ErrShapeMismatch, n, c, h, w)
	}
	if len(data) != n*c*h*w {
		return nil, fmt.Errorf("%w: %d values for shape [%d %d %d %d]", ErrShapeMismatch, len(data), n, c, h, w)
	}
	return &Tensor{n: n, c: c, h: h, w: w, data: data}, nil
}

// Shape gibt die Form als [N, C, H, W] zurueck.
func (t *Tensor) Shape() []int {
	return []int{t.n, t.c, t.h, t.w}
}

// Dims gibt die vier Dimensionen einzeln zurueck.
func (t *Tensor) Dims() (n, c, h, w int) {
	return t.n, t.c, t.h, t.w
}

// Data gibt den Backing-Slice zurueck.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Plane gibt die HxW-Ebene eines Kanals zurueck (ohne Kopie).
func (t *Tensor) Plane(n, c int) []float32 {
	size := t.h * t.w
	off := (n*t.c + c) * size
	return t.data[off : off+size]
}

// Clone erstellt eine tiefe Kopie.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{n: t.n, c: t.c, h: t.h, w: t.w, data: slices.Clone(t.data)}
}

// HasShape prueft die Form gegen erwartete Dimensionen.
func (t *Tensor) HasShape(n, c, h, w int) bool {
	return t.n == n && t.c == c && t.h == h && t.w == w
}

// Range gibt Minimum und Maximum aller Werte zurueck.
func (t *Tensor) Range() (lo, hi float32) {
	if len(t.data) == 0 {
		return 0, 0
	}
	lo, hi = t.data[0], t.data[0]
	for _, v := range t.data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Finite prueft ob alle Werte endlich sind (kein NaN, kein Inf).
func (t *Tensor) Finite() bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// String implementiert Stringer
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape())
}

// Concat verkettet a und b entlang der Kanal-Achse, a zuerst.
// Batch- und Raumdimensionen muessen uebereinstimmen.
func Concat(a, b *Tensor) (*Tensor, error) {
	if a.n != b.n || a.h != b.h || a.w != b.w {
		return nil, fmt.Errorf("%w: cannot concat %v and %v along channels", ErrShapeMismatch, a.Shape(), b.Shape())
	}

	out := New(a.n, a.c+b.c, a.h, a.w)
	sizeA := a.c * a.h * a.w
	sizeB := b.c * b.h * b.w
	for n := 0; n < a.n; n++ {
		dst := out.data[n*(sizeA+sizeB):]
		copy(dst[:sizeA], a.data[n*sizeA:(n+1)*sizeA])
		copy(dst[sizeA:sizeA+sizeB], b.data[n*sizeB:(n+1)*sizeB])
	}
	return out, nil
}

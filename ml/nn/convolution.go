// convolution.go - Conv2D und ConvTranspose2D auf der CPU
//
// Dieses Modul enthaelt:
// - Conv2D: strided Faltung ueber im2col + GEMM
// - ConvTranspose2D: transponierte Faltung ueber GEMM + col2im
//
// Gewichts-Layouts folgen PyTorch:
// - Conv2D:          (out, in, k, k)
// - ConvTranspose2D: (in, out, k, k)
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/sketch2face/sketch2face/ml"
)

// Conv2D ist eine quadratische 2D-Faltung.
type Conv2D struct {
	Weight []float32
	Bias   []float32 // nil wenn ohne Bias

	InChannels  int
	OutChannels int
	Kernel      int
	Stride      int
	Padding     int
}

// NewConv2D prueft die Parameterlaengen und erstellt eine Conv2D.
func NewConv2D(weight, bias []float32, in, out, kernel, stride, padding int) (*Conv2D, error) {
	if want := out * in * kernel * kernel; len(weight) != want {
		return nil, fmt.Errorf("%w: conv2d weight has %d values, want %d", ml.ErrShapeMismatch, len(weight), want)
	}
	if bias != nil && len(bias) != out {
		return nil, fmt.Errorf("%w: conv2d bias has %d values, want %d", ml.ErrShapeMismatch, len(bias), out)
	}
	return &Conv2D{
		Weight:      weight,
		Bias:        bias,
		InChannels:  in,
		OutChannels: out,
		Kernel:      kernel,
		Stride:      stride,
		Padding:     padding,
	}, nil
}

// OutputSize berechnet die Ausgabegroesse einer Raumdimension.
func (m *Conv2D) OutputSize(in int) int {
	return (in+2*m.Padding-m.Kernel)/m.Stride + 1
}

// Forward wendet die Faltung an. Die Eingabe wird nicht veraendert.
func (m *Conv2D) Forward(x *ml.Tensor) (*ml.Tensor, error) {
	n, c, h, w := x.Dims()
	if c != m.InChannels {
		return nil, fmt.Errorf("%w: conv2d expects %d input channels, got %d", ml.ErrShapeMismatch, m.InChannels, c)
	}

	oh, ow := m.OutputSize(h), m.OutputSize(w)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("%w: conv2d input %dx%d too small", ml.ErrShapeMismatch, h, w)
	}

	k := m.Kernel
	rows := c * k * k
	cols := make([]float32, rows*oh*ow)
	out := ml.New(n, m.OutChannels, oh, ow)

	weights := blas32.General{Rows: m.OutChannels, Cols: rows, Stride: rows, Data: m.Weight}
	for b := range n {
		m.im2col(x, b, cols, oh, ow)

		dst := out.Data()[b*m.OutChannels*oh*ow : (b+1)*m.OutChannels*oh*ow]
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			weights,
			blas32.General{Rows: rows, Cols: oh * ow, Stride: oh * ow, Data: cols},
			0,
			blas32.General{Rows: m.OutChannels, Cols: oh * ow, Stride: oh * ow, Data: dst})
	}

	addBias(out, m.Bias)
	return out, nil
}

// im2col entfaltet die Eingabe in eine (C*k*k) x (oh*ow) Matrix.
func (m *Conv2D) im2col(x *ml.Tensor, b int, cols []float32, oh, ow int) {
	_, c, h, w := x.Dims()
	k := m.Kernel

	parallelFor(c, func(ch int) {
		plane := x.Plane(b, ch)
		for kh := range k {
			for kw := range k {
				row := cols[((ch*k+kh)*k+kw)*oh*ow:][:oh*ow]
				for y := range oh {
					iy := y*m.Stride - m.Padding + kh
					dst := row[y*ow : (y+1)*ow]
					if iy < 0 || iy >= h {
						clear(dst)
						continue
					}
					src := plane[iy*w : (iy+1)*w]
					for xo := range ow {
						ix := xo*m.Stride - m.Padding + kw
						if ix < 0 || ix >= w {
							dst[xo] = 0
						} else {
							dst[xo] = src[ix]
						}
					}
				}
			}
		}
	})
}

// ConvTranspose2D ist eine quadratische transponierte 2D-Faltung.
type ConvTranspose2D struct {
	Weight []float32
	Bias   []float32 // nil wenn ohne Bias

	InChannels  int
	OutChannels int
	Kernel      int
	Stride      int
	Padding     int
}

// NewConvTranspose2D prueft die Parameterlaengen und erstellt eine ConvTranspose2D.
func NewConvTranspose2D(weight, bias []float32, in, out, kernel, stride, padding int) (*ConvTranspose2D, error) {
	if want := in * out * kernel * kernel; len(weight) != want {
		return nil, fmt.Errorf("%w: conv_transpose2d weight has %d values, want %d", ml.ErrShapeMismatch, len(weight), want)
	}
	if bias != nil && len(bias) != out {
		return nil, fmt.Errorf("%w: conv_transpose2d bias has %d values, want %d", ml.ErrShapeMismatch, len(bias), out)
	}
	return &ConvTranspose2D{
		Weight:      weight,
		Bias:        bias,
		InChannels:  in,
		OutChannels: out,
		Kernel:      kernel,
		Stride:      stride,
		Padding:     padding,
	}, nil
}

// OutputSize berechnet die Ausgabegroesse einer Raumdimension.
func (m *ConvTranspose2D) OutputSize(in int) int {
	return (in-1)*m.Stride - 2*m.Padding + m.Kernel
}

// Forward wendet die transponierte Faltung an. Die Eingabe wird nicht veraendert.
func (m *ConvTranspose2D) Forward(x *ml.Tensor) (*ml.Tensor, error) {
	n, c, h, w := x.Dims()
	if c != m.InChannels {
		return nil, fmt.Errorf("%w: conv_transpose2d expects %d input channels, got %d", ml.ErrShapeMismatch, m.InChannels, c)
	}

	oh, ow := m.OutputSize(h), m.OutputSize(w)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("%w: conv_transpose2d input %dx%d too small", ml.ErrShapeMismatch, h, w)
	}

	k := m.Kernel
	rows := m.OutChannels * k * k
	cols := make([]float32, rows*h*w)
	out := ml.New(n, m.OutChannels, oh, ow)

	// W^T (out*k*k x in) * X (in x h*w)
	weights := blas32.General{Rows: c, Cols: rows, Stride: rows, Data: m.Weight}
	for b := range n {
		src := x.Data()[b*c*h*w : (b+1)*c*h*w]
		blas32.Gemm(blas.Trans, blas.NoTrans, 1,
			weights,
			blas32.General{Rows: c, Cols: h * w, Stride: h * w, Data: src},
			0,
			blas32.General{Rows: rows, Cols: h * w, Stride: h * w, Data: cols})

		m.col2im(cols, out, b, h, w)
	}

	addBias(out, m.Bias)
	return out, nil
}

// col2im summiert die Spalten-Matrix in die Ausgabe-Ebenen.
// Jeder Ausgabekanal wird von genau einer Goroutine geschrieben.
func (m *ConvTranspose2D) col2im(cols []float32, out *ml.Tensor, b, h, w int) {
	_, _, oh, ow := out.Dims()
	k := m.Kernel

	parallelFor(m.OutChannels, func(co int) {
		plane := out.Plane(b, co)
		for kh := range k {
			for kw := range k {
				row := cols[((co*k+kh)*k+kw)*h*w:][:h*w]
				for iy := range h {
					y := iy*m.Stride - m.Padding + kh
					if y < 0 || y >= oh {
						continue
					}
					dst := plane[y*ow : (y+1)*ow]
					src := row[iy*w : (iy+1)*w]
					for ix := range w {
						xo := ix*m.Stride - m.Padding + kw
						if xo < 0 || xo >= ow {
							continue
						}
						dst[xo] += src[ix]
					}
				}
			}
		}
	})
}

// addBias addiert einen Bias pro Kanal. nil ist erlaubt.
func addBias(t *ml.Tensor, bias []float32) {
	if bias == nil {
		return
	}
	n, c, _, _ := t.Dims()
	for b := range n {
		for ch := range c {
			v := bias[ch]
			plane := t.Plane(b, ch)
			for i := range plane {
				plane[i] += v
			}
		}
	}
}

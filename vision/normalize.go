// MODUL: normalize
// ZWECK: Preprocess - beliebiges Bild in den Eingabe-Tensor des Generators
// INPUT: image.Image oder kodierte Bild-Bytes
// OUTPUT: *ml.Tensor (1, 3, 256, 256), float32 in [-1, 1]
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: golang.org/x/image/draw (ueber resize), internes ml-Paket
// HINWEISE: Reihenfolge: Resize -> RGB -> [0,1] -> (x-0.5)/0.5 -> Batch-Dim.
//           Deterministisch: gleiche Eingabe ergibt bit-identische Tensoren.

package vision

import (
	"fmt"
	"image"

	"github.com/sketch2face/sketch2face/ml"
)

// Size ist die feste Kantenlaenge von Ein- und Ausgabebild.
const Size = 256

// Normalisierung des Generators: mean/std 0.5 pro Kanal, Ergebnis in [-1, 1]
var (
	SketchMean = [3]float32{0.5, 0.5, 0.5}
	SketchStd  = [3]float32{0.5, 0.5, 0.5}
)

// Preprocess wandelt img in einen (1, 3, Size, Size) Tensor.
func Preprocess(img image.Image) (*ml.Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	src := resize(toNRGBA(img), Size, Size)
	data := normalizeCHW(src, SketchMean, SketchStd)
	return ml.FromData(data, 1, 3, Size, Size)
}

// PreprocessBytes dekodiert data und ruft Preprocess auf.
func PreprocessBytes(data []byte) (*ml.Tensor, ImageFormat, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, format, err
	}
	t, err := Preprocess(img)
	if err != nil {
		return nil, format, fmt.Errorf("preprocess %s: %w", format, err)
	}
	return t, format, nil
}

// normalizeCHW liest R, G, B (Alpha wird ignoriert) und schreibt CHW float32.
func normalizeCHW(img *image.NRGBA, mean, std [3]float32) []float32 {
	bounds := img.Bounds()
	h := bounds.Dy()
	w := bounds.Dx()
	plane := h * w

	// Pre-allozieren fuer CHW Layout
	result := make([]float32, plane*3)

	idx := 0
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := range w {
			px := row[x*4 : x*4+3]
			for c := range 3 {
				v := float32(px[c]) / 255.0
				result[c*plane+idx] = (v - mean[c]) / std[c]
			}
			idx++
		}
	}

	return result
}

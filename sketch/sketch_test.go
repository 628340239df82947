package sketch

import (
	"image"
	"testing"

	"github.com/sketch2face/sketch2face/vision"
)

func TestFace(t *testing.T) {
	img := Face(DefaultSize)
	if got := img.Bounds(); got != image.Rect(0, 0, 256, 256) {
		t.Fatalf("Bounds = %v, erwartet 256x256", got)
	}

	tests := []struct {
		name  string
		x, y  int
		black bool
	}{
		{"Ecke", 0, 0, false},
		{"Oval links", 51, 120, true},
		{"Nase", 127, 125, true},
		{"Auge innen", 80, 100, false},
		{"Stirn", 128, 60, false},
		{"Mund unten", 128, 178, true},
		{"unter dem Kinn", 128, 230, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := img.RGBAAt(tt.x, tt.y)
			if tt.black && c.R != 0 {
				t.Errorf("(%d,%d) = %v, erwartet schwarz", tt.x, tt.y, c)
			}
			if !tt.black && c.R != 255 {
				t.Errorf("(%d,%d) = %v, erwartet weiss", tt.x, tt.y, c)
			}
		})
	}
}

func TestFaceGrayscale(t *testing.T) {
	img := Face(128)
	dark := 0
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
		if r != g || g != b || a != 255 {
			t.Fatalf("Pixel %d ist nicht grau/deckend: %d %d %d %d", i/4, r, g, b, a)
		}
		if r < 128 {
			dark++
		}
	}

	// Striche ja, aber ueberwiegend weisser Grund
	total := 128 * 128
	if dark == 0 || dark > total/4 {
		t.Errorf("dunkle Pixel = %d von %d", dark, total)
	}
}

func TestFaceScaled(t *testing.T) {
	small := Face(256)
	large := Face(512)

	// dieselbe Stelle, doppelt skaliert
	if c := large.RGBAAt(2*51+1, 2*120); c.R != 0 {
		t.Errorf("Oval bei 512 = %v, erwartet schwarz", c)
	}
	if c := small.RGBAAt(51, 120); c.R != 0 {
		t.Errorf("Oval bei 256 = %v, erwartet schwarz", c)
	}

	if got := Face(0).Bounds().Dx(); got != DefaultSize {
		t.Errorf("Face(0) Breite = %d, erwartet %d", got, DefaultSize)
	}
}

func TestFacePreprocess(t *testing.T) {
	x, err := vision.Preprocess(Face(DefaultSize))
	if err != nil {
		t.Fatal(err)
	}

	// weisser Grund wird +1, Striche -1
	data := x.Data()
	if v := data[0]; v < 0.99 {
		t.Errorf("Ecke = %v, erwartet ~1", v)
	}
	if v := data[120*256+51]; v > -0.99 {
		t.Errorf("Oval = %v, erwartet ~-1", v)
	}
}

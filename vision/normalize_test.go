// MODUL: normalize_test
// ZWECK: Tests fuer Preprocess und den Preprocess/Postprocess-Rundlauf
// INPUT: Synthetische Bilder
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing, image, go-cmp
// HINWEISE: Enthaelt das 512x512-Szenario mit zentriertem schwarzem Quadrat

package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// createTestImage erzeugt ein einfarbiges NRGBA-Testbild
func createTestImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessShapeAndRange(t *testing.T) {
	img := createTestImage(300, 200, color.NRGBA{255, 0, 0, 255})

	x, err := Preprocess(img)
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}

	if diff := cmp.Diff([]int{1, 3, Size, Size}, x.Shape()); diff != "" {
		t.Errorf("Shape (-want +got):\n%s", diff)
	}

	// Rot: R=+1, G=B=-1
	for c, want := range []float32{1, -1, -1} {
		if got := x.Plane(0, c)[0]; math.Abs(float64(got-want)) > 1e-3 {
			t.Errorf("Kanal %d = %v, erwartet %v", c, got, want)
		}
	}
}

func TestPreprocessEmpty(t *testing.T) {
	if _, err := Preprocess(image.NewNRGBA(image.Rect(0, 0, 0, 10))); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Preprocess() error = %v, erwartet ErrEmptyImage", err)
	}
	if _, err := Preprocess(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Preprocess(nil) error = %v, erwartet ErrEmptyImage", err)
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 123, 77))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 31)
	}

	a, err := Preprocess(img)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Preprocess(img)

	if diff := cmp.Diff(a.Data(), b.Data()); diff != "" {
		t.Error("Preprocess() ist nicht deterministisch")
	}
}

func TestPreprocessGrayAndRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, Size, Size))
	rgba := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	for y := range Size {
		for x := range Size {
			v := uint8((x + y) / 2)
			gray.SetGray(x, y, color.Gray{Y: v})
			// halbtransparent, Alpha wird verworfen
			rgba.SetNRGBA(x, y, color.NRGBA{v, v, v, 128})
		}
	}

	g, err := Preprocess(gray)
	if err != nil {
		t.Fatalf("Preprocess(gray) error = %v", err)
	}
	r, err := Preprocess(rgba)
	if err != nil {
		t.Fatalf("Preprocess(rgba) error = %v", err)
	}

	if diff := cmp.Diff([]int{1, 3, Size, Size}, g.Shape()); diff != "" {
		t.Errorf("Gray Shape (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(g.Data(), r.Data()); diff != "" {
		t.Error("Graustufen- und RGBA-Eingabe ergeben unterschiedliche Tensoren")
	}

	// Kleinere RGBA-Eingabe mit Resize darf ebenfalls nicht fehlschlagen
	if _, err := Preprocess(createTestImage(64, 64, color.NRGBA{10, 20, 30, 0})); err != nil {
		t.Errorf("Preprocess(rgba 64x64) error = %v", err)
	}
}

func TestPreprocessTransparentAnySize(t *testing.T) {
	// Alpha wird verworfen, egal ob skaliert wird oder nicht
	tests := []struct {
		name string
		size int
		c    color.NRGBA
		want float32
	}{
		{"weiss nativ", Size, color.NRGBA{255, 255, 255, 0}, 1},
		{"weiss 512", 512, color.NRGBA{255, 255, 255, 0}, 1},
		{"weiss 100", 100, color.NRGBA{255, 255, 255, 0}, 1},
		{"schwarz 512", 512, color.NRGBA{0, 0, 0, 0}, -1},
		{"weiss halbtransparent 300", 300, color.NRGBA{255, 255, 255, 40}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(tt.size, tt.size, tt.c)

			x, err := Preprocess(img)
			if err != nil {
				t.Fatalf("Preprocess() error = %v", err)
			}
			for i, v := range x.Data() {
				if math.Abs(float64(v-tt.want)) > 0.02 {
					t.Fatalf("Wert %d = %v, erwartet %v", i, v, tt.want)
				}
			}

			// Eingabe bleibt unveraendert
			if got := img.NRGBAAt(0, 0); got != tt.c {
				t.Errorf("Eingabe veraendert: %v, erwartet %v", got, tt.c)
			}
		})
	}
}

func TestPreprocessTransparentPalette(t *testing.T) {
	palette := color.Palette{color.NRGBA{255, 255, 255, 0}, color.NRGBA{0, 0, 0, 255}}
	for _, size := range []int{Size, 400} {
		img := image.NewPaletted(image.Rect(0, 0, size, size), palette)

		x, err := Preprocess(img)
		if err != nil {
			t.Fatalf("Preprocess(%d) error = %v", size, err)
		}
		if v := x.Data()[0]; math.Abs(float64(v-1)) > 0.02 {
			t.Errorf("Groesse %d: Wert = %v, erwartet 1", size, v)
		}
	}
}

func TestPreprocessCenteredSquare(t *testing.T) {
	img := createTestImage(512, 512, color.White)
	for y := 251; y < 261; y++ {
		for x := 251; x < 261; x++ {
			img.Set(x, y, color.Black)
		}
	}

	tensor, err := Preprocess(img)
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}

	at := func(c, y, x int) float32 { return tensor.Plane(0, c)[y*Size+x] }

	for c := range 3 {
		for _, p := range [][2]int{{127, 127}, {128, 128}, {127, 128}} {
			if v := at(c, p[0], p[1]); math.Abs(float64(v+1)) > 0.05 {
				t.Errorf("Zentrum Kanal %d %v = %v, erwartet ~-1", c, p, v)
			}
		}
		for _, p := range [][2]int{{0, 0}, {10, 200}, {100, 128}, {128, 160}, {255, 255}} {
			if v := at(c, p[0], p[1]); math.Abs(float64(v-1)) > 0.05 {
				t.Errorf("Umgebung Kanal %d %v = %v, erwartet ~+1", c, p, v)
			}
		}
	}
}

func TestMidGrayRoundTrip(t *testing.T) {
	img := createTestImage(Size, Size, color.NRGBA{128, 128, 128, 255})

	x, err := Preprocess(img)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Postprocess(x)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range out.Pix {
		if d := int(v) - 128; d < -2 || d > 2 {
			t.Fatalf("Pix[%d] = %d, erwartet 128 +-2", i, v)
		}
	}
}

func TestPreprocessBytes(t *testing.T) {
	x, format, err := PreprocessBytes(createPNGBytes(40, 40, color.Black))
	if err != nil {
		t.Fatalf("PreprocessBytes() error = %v", err)
	}
	if format != FormatPNG {
		t.Errorf("Format = %v, erwartet png", format)
	}
	if lo, hi := x.Range(); lo != -1 || hi != -1 {
		t.Errorf("Range() = [%v, %v], erwartet [-1, -1]", lo, hi)
	}

	if _, _, err := PreprocessBytes([]byte("not an image")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("PreprocessBytes() error = %v, erwartet ErrUnknownFormat", err)
	}
}

// MODUL: image
// ZWECK: Bild-Dekodierung, Kanal-Konvertierung, Skalierung und Kodierung
// INPUT: Dateipfad, Bytes oder image.Image
// OUTPUT: *image.NRGBA (nicht vormultipliziert), kodierte Bild-Bytes
// NEBENEFFEKTE: Dateisystem-Lesezugriff bei LoadImage
// ABHAENGIGKEITEN: golang.org/x/image (draw, bmp, tiff, webp), image/jpeg, image/png, image/gif
// HINWEISE: Skalierung immer mit draw.BiLinear, Bilder in Zielgroesse werden
//           nur kopiert. Alpha wird vor dem Skalieren verworfen (A=0xff), die
//           gespeicherten RGB-Werte bleiben erhalten, nicht auf Weiss komponiert.
//           Decode prueft die Pixelzahl per DecodeConfig vor dem Dekodieren.

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage: Breite oder Hoehe ist 0
	ErrEmptyImage = errors.New("vision: bild hat keine pixel")

	// ErrDecode: Format erkannt, Daten aber nicht dekodierbar
	ErrDecode = errors.New("vision: bild dekodieren fehlgeschlagen")

	// ErrImageTooLarge: Header meldet mehr als MaxPixels Pixel
	ErrImageTooLarge = errors.New("vision: bild zu gross")
)

// MaxPixels begrenzt Breite*Hoehe eines dekodierten Bildes. Ein kleiner,
// stark komprimierter Upload darf nicht beliebig viel Speicher belegen.
const MaxPixels = 89_478_485

// JPEGQuality fuer Encode mit FormatJPEG
const JPEGQuality = 95

// LoadImage laedt und dekodiert ein Bild von einem Dateipfad
func LoadImage(path string) (image.Image, ImageFormat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	return Decode(data)
}

// DecodeReader puffert reader und dekodiert das Bild
func DecodeReader(reader io.Reader) (image.Image, ImageFormat, error) {
	// Erst Daten puffern fuer Format-Erkennung
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("daten lesen fehlgeschlagen: %w", err)
	}
	return Decode(data)
}

// Decode erkennt das Format per Magic-Bytes und dekodiert die Daten.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, ErrEmptyImage
	}

	format := DetectFormat(data)
	if err := ValidateFormat(format); err != nil {
		return nil, format, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d, maximal %d pixel", ErrImageTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// toNRGBA konvertiert ein beliebiges image.Image zu einem deckenden
// *image.NRGBA mit Ursprung (0, 0). Graustufen werden auf drei Kanaele
// repliziert. Alpha wird auf 0xff gesetzt, die gespeicherten Farbwerte
// bleiben unveraendert. img selbst wird nie veraendert.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && nrgba.Opaque() {
		return nrgba
	}

	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	switch src := img.(type) {
	case *image.NRGBA:
		// zeilenweise, RGB unter Alpha 0 bleibt erhalten
		for y := range h {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[off:off+w*4])
		}
	case *image.Paletted:
		palette := make([]color.NRGBA, len(src.Palette))
		for i, c := range src.Palette {
			palette[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
		}
		for y := range h {
			for x := range w {
				idx := src.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y)
				if int(idx) < len(palette) {
					dst.SetNRGBA(x, y, palette[idx])
				}
			}
		}
	default:
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	}

	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// resize skaliert auf width x height mit draw.BiLinear.
// Hat src bereits die Zielgroesse, wird src unveraendert zurueckgegeben.
func resize(src *image.NRGBA, width, height int) *image.NRGBA {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Encode schreibt img im angegebenen Format nach w.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// EncodeBytes kodiert img und gibt die Bytes zurueck.
func EncodeBytes(img image.Image, format ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/vision"
)

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool \u00fcml\u00e4uts.txt", "i_contain_cool_umlauts.txt"},
		{`C:\sketches\face.png`, "C_sketches_face.png"},
		{"\u65e5\u672c.png", "png"},
		{"  .hidden_.png  ", "hidden_.png"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := secureFilename(tt.in); got != tt.want {
				t.Errorf("secureFilename(%q) = %q, erwartet %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAllowedFile(t *testing.T) {
	tests := map[string]bool{
		"a.png":        true,
		"a.PNG":        true,
		"a.jpg":        true,
		"a.jpeg":       true,
		"a.gif":        true,
		"a.bmp":        true,
		"a.tiff":       false,
		"a.webp":       false,
		"png":          false,
		"archive.png.": false,
		"":             false,
	}

	for name, want := range tests {
		if got := allowedFile(name); got != want {
			t.Errorf("allowedFile(%q) = %v, erwartet %v", name, got, want)
		}
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		upload string
		name   string
		format vision.ImageFormat
	}{
		{"id_face.png", "output_id_face.png", vision.FormatPNG},
		{"id_face.jpeg", "output_id_face.jpeg", vision.FormatJPEG},
		{"id_face.bmp", "output_id_face.bmp", vision.FormatBMP},
		{"id_png", "output_id_png.png", vision.FormatPNG},
	}

	for _, tt := range tests {
		name, format := outputFilename(tt.upload)
		if name != tt.name || format != tt.format {
			t.Errorf("outputFilename(%q) = %q %v, erwartet %q %v", tt.upload, name, format, tt.name, tt.format)
		}
	}
}

func TestSafeDownloadName(t *testing.T) {
	tests := map[string]bool{
		"output_x.png":   true,
		"":               false,
		".":              false,
		"..":             false,
		"../history.db":  false,
		`..\history.db`:  false,
		"a..b.png":       false,
		"sub/output.png": false,
	}

	for name, want := range tests {
		if got := safeDownloadName(name); got != want {
			t.Errorf("safeDownloadName(%q) = %v, erwartet %v", name, got, want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errNoFile, http.StatusBadRequest},
		{errTooLarge, http.StatusRequestEntityTooLarge},
		{processingError{fmt.Errorf("decode: %w", vision.ErrDecode)}, http.StatusBadRequest},
		{processingError{vision.ErrUnknownFormat}, http.StatusBadRequest},
		{processingError{fmt.Errorf("decode: %w", vision.ErrImageTooLarge)}, http.StatusRequestEntityTooLarge},
		{processingError{fmt.Errorf("inference: %w", generator.ErrResourceExhausted)}, http.StatusInternalServerError},
		{processingError{vision.ErrNonFinite}, http.StatusInternalServerError},
		{processingError{context.Canceled}, http.StatusServiceUnavailable},
		{errors.New("irgendwas"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, erwartet %d", tt.err, got, tt.status)
		}
	}
}

// Package pipeline verbindet Decode, Preprocess, Forward und Postprocess zu
// einer Uebersetzung von Skizzen-Bytes in ein Gesicht.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/logutil"
	"github.com/sketch2face/sketch2face/ml"
	"github.com/sketch2face/sketch2face/vision"
)

// ForwardFunc fuehrt einen Generator-Durchlauf aus. Der Server reicht hier
// eine per Semaphore serialisierte Variante durch.
type ForwardFunc func(ctx context.Context, x *ml.Tensor) (*ml.Tensor, error)

// Direct ruft g.Forward ohne Serialisierung auf.
func Direct(g *generator.Generator) ForwardFunc {
	return func(ctx context.Context, x *ml.Tensor) (*ml.Tensor, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return g.Forward(x)
	}
}

// Result ist das Ergebnis einer Uebersetzung.
type Result struct {
	Image *vision.RGBImage

	// Eingabe vor dem Resize
	Format vision.ImageFormat
	Width  int
	Height int

	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
}

// Run uebersetzt die kodierte Skizze data. Fehler behalten ihre Sentinels
// (vision.ErrDecode, generator.ErrInputShape, ...) fuer errors.Is.
func Run(ctx context.Context, data []byte, forward ForwardFunc) (*Result, error) {
	var res Result

	start := time.Now()
	img, format, err := vision.Decode(data)
	if err != nil {
		return nil, err
	}
	res.Format = format
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()

	x, err := vision.Preprocess(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", format, err)
	}
	res.Preprocess = time.Since(start)

	start = time.Now()
	y, err := forward(ctx, x)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	res.Inference = time.Since(start)

	start = time.Now()
	res.Image, err = vision.Postprocess(y)
	if err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	res.Postprocess = time.Since(start)

	logutil.TraceContext(ctx, "sketch translated",
		"format", format,
		"size", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"preprocess", res.Preprocess,
		"inference", res.Inference,
		"postprocess", res.Postprocess)
	return &res, nil
}

// Total ist die Summe der drei Phasen.
func (r *Result) Total() time.Duration {
	return r.Preprocess + r.Inference + r.Postprocess
}

// LogValue implementiert slog.LogValuer.
func (r *Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("format", string(r.Format)),
		slog.Int("width", r.Width),
		slog.Int("height", r.Height),
		slog.Duration("total", r.Total()))
}

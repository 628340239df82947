// server.go - HTTP-Server fuer die Skizze-zu-Gesicht Uebersetzung
//
// Dieses Modul enthaelt:
// - Options: Verzeichnisse, Limits und Verlauf
// - Server: haelt den eingefrorenen Generator und serialisiert Forward
// - New: validiert die Optionen und legt Verzeichnisse an
package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/sketch2face/sketch2face/checkpoint"
	"github.com/sketch2face/sketch2face/envconfig"
	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/ml"
	"github.com/sketch2face/sketch2face/store"
)

// Options konfigurieren einen Server. Leere Felder werden aus envconfig
// gefuellt, siehe OptionsFromEnv.
type Options struct {
	// Checkpoint liefert Pfad und Metadaten fuer /health, optional
	Checkpoint *checkpoint.Checkpoint

	// History speichert erfolgreiche Generierungen, optional
	History *store.Store

	UploadDir     string
	OutputDir     string
	MaxUploadSize int64
	NumParallel   int
	KeepUploads   bool

	// Addr ist die Listener-Adresse fuer die Host-Pruefung, optional
	Addr net.Addr
}

// OptionsFromEnv liest die Optionen aus der Umgebung.
func OptionsFromEnv() Options {
	return Options{
		UploadDir:     envconfig.Uploads(),
		OutputDir:     envconfig.Outputs(),
		MaxUploadSize: int64(envconfig.MaxUploadSize()),
		NumParallel:   int(envconfig.NumParallel()),
		KeepUploads:   envconfig.KeepUploads(true),
	}
}

// Server bedient die HTTP-Routen. Der Generator wird nie veraendert,
// parallele Anfragen teilen ihn ueber die Semaphore.
type Server struct {
	gen  *generator.Generator
	opts Options
	sem  *semaphore.Weighted
}

// New erzeugt einen Server fuer g. Ohne gebundenen Generator gibt es keinen Server.
func New(g *generator.Generator, opts Options) (*Server, error) {
	if g == nil {
		return nil, errors.New("server: no generator")
	}

	opts.UploadDir = cmp.Or(opts.UploadDir, "uploads")
	opts.OutputDir = cmp.Or(opts.OutputDir, "outputs")
	opts.MaxUploadSize = cmp.Or(opts.MaxUploadSize, 16<<20)
	opts.NumParallel = max(opts.NumParallel, 1)

	for _, dir := range []string{opts.UploadDir, opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("server: create %s: %w", dir, err)
		}
	}

	return &Server{
		gen:  g,
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.NumParallel)),
	}, nil
}

// forward fuehrt einen Generator-Durchlauf aus, sobald ein Platz frei ist.
// Eine abgebrochene Anfrage startet keinen Durchlauf.
func (s *Server) forward(ctx context.Context, x *ml.Tensor) (*ml.Tensor, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	return s.gen.Forward(x)
}

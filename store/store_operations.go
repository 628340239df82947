// Modul: store_operations.go
// Beschreibung: Oeffentliche Operationen auf dem Verlauf.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Add speichert g. Fehlende ID und CreatedAt werden gesetzt, der
// gespeicherte Eintrag wird zurueckgegeben.
func (s *Store) Add(ctx context.Context, g Generation) (Generation, error) {
	if err := s.ensureDB(); err != nil {
		return Generation{}, err
	}

	if g.OutputName == "" {
		return Generation{}, fmt.Errorf("store: generation without output name")
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	g.CreatedAt = g.CreatedAt.UTC()

	if err := s.db.insertGeneration(ctx, g); err != nil {
		return Generation{}, err
	}
	return g, nil
}

// Get sucht die Generierung zum Ausgabe-Dateinamen.
func (s *Store) Get(ctx context.Context, outputName string) (*Generation, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}

	return s.db.getGeneration(ctx, outputName)
}

// List gibt die neuesten limit Generierungen zurueck, neueste zuerst.
// limit <= 0 liefert alle.
func (s *Store) List(ctx context.Context, limit int) ([]Generation, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}

	return s.db.listGenerations(ctx, limit)
}

// Count gibt die Anzahl gespeicherter Generierungen zurueck.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}

	return s.db.countGenerations(ctx)
}

// Modul: store_core.go
// Beschreibung: Store-Kernfunktionen und Datenbank-Initialisierung.
// Enthaelt Open, ensureDB und die Instanz-ID.

package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

type Store struct {
	// DBPath ist der Pfad der sqlite-Datei
	DBPath string

	// dbMu schuetzt nur die Initialisierung
	dbMu sync.Mutex
	db   *database
}

// Open oeffnet (oder erstellt) den Verlauf unter path und migriert das Schema.
func Open(path string) (*Store, error) {
	s := &Store{DBPath: path}
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDB() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db != nil {
		return nil
	}

	if s.DBPath == "" {
		return fmt.Errorf("store: empty database path")
	}

	// Verzeichnis sicherstellen
	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	database, err := newDatabase(s.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// Instanz-ID beim ersten Start erzeugen
	id, err := database.getID()
	if err != nil || id == "" {
		u, err := uuid.NewV7()
		if err == nil {
			if err := database.setID(u.String()); err != nil {
				slog.Warn("failed to store instance id", "error", err)
			}
		}
	}

	s.db = database
	slog.Debug("history store opened", "path", s.DBPath)
	return nil
}

// ID gibt die beim ersten Oeffnen erzeugte Instanz-ID zurueck.
func (s *Store) ID() (string, error) {
	if err := s.ensureDB(); err != nil {
		return "", err
	}

	return s.db.getID()
}

func (s *Store) Close() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

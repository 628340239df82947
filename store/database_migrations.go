// database_migrations.go - Datenbank-Schema-Migrationen
// Enthaelt: migrate(), alle migrateVxToVy() Funktionen

package store

import "fmt"

// migrate fuehrt Datenbank-Schema-Migrationen durch
func (db *database) migrate() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version after migration attempt: %w", err)
	}

	for version < currentSchemaVersion {
		switch version {
		case 1:
			// checkpoint Spalte hinzufuegen
			if err := db.migrateV1ToV2(); err != nil {
				return fmt.Errorf("migrate v1 to v2: %w", err)
			}
			version = 2
		case 2:
			// Phasen-Zeiten und Index auf created_at
			if err := db.migrateV2ToV3(); err != nil {
				return fmt.Errorf("migrate v2 to v3: %w", err)
			}
			version = 3
		default:
			// Unbekannte Version - auf aktuell setzen
			version = currentSchemaVersion
			if err := db.setSchemaVersion(version); err != nil {
				return err
			}
		}
	}

	// Index existiert ab v3, fuer frische Datenbanken hier anlegen
	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);`); err != nil {
		return fmt.Errorf("create created_at index: %w", err)
	}

	return nil
}

// migrateV1ToV2 fuegt die checkpoint Spalte zur generations Tabelle hinzu
func (db *database) migrateV1ToV2() error {
	_, err := db.conn.Exec(`ALTER TABLE generations ADD COLUMN checkpoint TEXT NOT NULL DEFAULT '';`)
	if err != nil && !duplicateColumnError(err) {
		return fmt.Errorf("add checkpoint column: %w", err)
	}

	return db.setSchemaVersion(2)
}

// migrateV2ToV3 fuegt die Zeiten der drei Phasen hinzu
func (db *database) migrateV2ToV3() error {
	for _, column := range []string{"preprocess_ms", "inference_ms", "postprocess_ms"} {
		_, err := db.conn.Exec(fmt.Sprintf(`ALTER TABLE generations ADD COLUMN %s INTEGER NOT NULL DEFAULT 0;`, column))
		if err != nil && !duplicateColumnError(err) {
			return fmt.Errorf("add %s column: %w", column, err)
		}
	}

	return db.setSchemaVersion(3)
}

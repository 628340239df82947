// Modul: store_types.go
// Beschreibung: Datentypen fuer den Generierungs-Verlauf.

package store

import (
	"errors"
	"time"
)

// ErrNotFound wird zurueckgegeben wenn keine Generierung zum Namen existiert.
var ErrNotFound = errors.New("store: generation not found")

// Generation ist ein Eintrag im Verlauf: eine hochgeladene Skizze und das
// daraus erzeugte Bild.
type Generation struct {
	ID         string `json:"id"`
	InputName  string `json:"input_name"`
	UploadPath string `json:"upload_path,omitempty"`
	OutputName string `json:"output_name"`
	Checkpoint string `json:"checkpoint"`

	// Groesse der Eingabe vor dem Resize
	Width  int `json:"width"`
	Height int `json:"height"`

	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`

	CreatedAt time.Time `json:"created_at"`
}

// Total ist die Summe der drei Phasen.
func (g Generation) Total() time.Duration {
	return g.Preprocess + g.Inference + g.Postprocess
}

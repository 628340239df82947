package checkpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/sketch2face/sketch2face/ml"
)

var (
	// ErrLoad ist in jedem Fehler dieses Pakets enthalten.
	ErrLoad = errors.New("checkpoint: load failed")

	ErrNotFound            = errors.New("checkpoint: file not found")
	ErrCorrupt             = errors.New("checkpoint: corrupt container")
	ErrMissingParameter    = errors.New("checkpoint: missing parameter")
	ErrShapeMismatch       = fmt.Errorf("checkpoint: shape mismatch: %w", ml.ErrShapeMismatch)
	ErrUnexpectedParameter = errors.New("checkpoint: unexpected parameter")
	ErrUnsupportedDType    = errors.New("checkpoint: unsupported dtype")
)

// LoadError beschreibt einen fehlgeschlagenen Ladevorgang.
type LoadError struct {
	Path  string
	Param string
	Want  []int
	Got   []int

	// Suggestion ist der aehnlichste bekannte Name, falls vorhanden.
	Suggestion string

	Err error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	sb.WriteString("load checkpoint")
	if e.Path != "" {
		fmt.Fprintf(&sb, " %s", e.Path)
	}
	if e.Param != "" {
		fmt.Fprintf(&sb, ": %s", e.Param)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	if e.Want != nil || e.Got != nil {
		fmt.Fprintf(&sb, " (want %v, got %v)", e.Want, e.Got)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "; did you mean %q?", e.Suggestion)
	}
	return sb.String()
}

// Unwrap erlaubt errors.Is fuer ErrLoad und den konkreten Fehler.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// loadError haengt path an, ohne bestehende LoadErrors doppelt zu verpacken.
func loadError(path string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Path == "" {
			le.Path = path
		}
		return le
	}
	return &LoadError{Path: path, Err: err}
}

// closest gibt den Kandidaten mit der kleinsten Editierdistanz zurueck,
// sofern er hoechstens halb so weit entfernt ist wie name lang.
func closest(name string, candidates []string) string {
	best, bestDist := "", len(name)/2+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// MODUL: errors
// ZWECK: Abbildung von Pipeline-Fehlern auf HTTP-Status und JSON-Antworten
// INPUT: Fehler aus vision, generator und dem Upload
// OUTPUT: {"error": "..."} Responses
// HINWEISE: Antwortformat entspricht der bestehenden Web-Oberflaeche
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/vision"
)

// ============================================================================
// Upload-Fehler
// ============================================================================

var (
	errNoFile       = errors.New("No file uploaded")
	errNoSelection  = errors.New("No file selected")
	errInvalidType  = errors.New("Invalid file type")
	errTooLarge     = errors.New("File too large")
	errBadFilename  = errors.New("Invalid filename")
	errFileNotFound = errors.New("File not found")
)

// ============================================================================
// Status-Mapping
// ============================================================================

// errorStatus mappt bekannte Fehler auf HTTP-Status. Reihenfolge zaehlt,
// der erste Treffer per errors.Is gewinnt.
var errorStatus = []struct {
	err    error
	status int
}{
	// Upload
	{errNoFile, http.StatusBadRequest},
	{errNoSelection, http.StatusBadRequest},
	{errInvalidType, http.StatusBadRequest},
	{errBadFilename, http.StatusBadRequest},
	{errTooLarge, http.StatusRequestEntityTooLarge},
	{errFileNotFound, http.StatusNotFound},

	// Preprocess: kaputtes oder unbekanntes Bild
	{vision.ErrEmptyImage, http.StatusBadRequest},
	{vision.ErrUnknownFormat, http.StatusBadRequest},
	{vision.ErrUnsupportedFormat, http.StatusBadRequest},
	{vision.ErrDecode, http.StatusBadRequest},
	{vision.ErrImageTooLarge, http.StatusRequestEntityTooLarge},

	// Inference und Postprocess
	{generator.ErrInputShape, http.StatusInternalServerError},
	{generator.ErrResourceExhausted, http.StatusInternalServerError},
	{vision.ErrNonFinite, http.StatusInternalServerError},
	{vision.ErrTensorShape, http.StatusInternalServerError},

	// Client hat abgebrochen bevor ein Platz frei war
	{context.Canceled, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusServiceUnavailable},
}

// statusFor gibt den HTTP-Status fuer err zurueck.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// ============================================================================
// Response Helper
// ============================================================================

// abortWithError schreibt err als JSON-Fehler mit passendem Status.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

// processingError kennzeichnet Fehler der Bild-Pipeline.
type processingError struct {
	err error
}

func (e processingError) Error() string { return "Processing failed: " + e.err.Error() }
func (e processingError) Unwrap() error { return e.err }

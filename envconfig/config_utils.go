// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - Uint/Uint64: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"SKETCH2FACE_DEBUG":           {"SKETCH2FACE_DEBUG", LogLevel(), "Show additional debug information (e.g. SKETCH2FACE_DEBUG=1)"},
		"SKETCH2FACE_HOST":            {"SKETCH2FACE_HOST", Host(), "IP Address for the sketch2face server (default 0.0.0.0:5000)"},
		"SKETCH2FACE_CHECKPOINT":      {"SKETCH2FACE_CHECKPOINT", Checkpoint(), "Path to the generator checkpoint"},
		"SKETCH2FACE_UPLOADS":         {"SKETCH2FACE_UPLOADS", Uploads(), "Directory for uploaded sketches"},
		"SKETCH2FACE_OUTPUTS":         {"SKETCH2FACE_OUTPUTS", Outputs(), "Directory for generated faces"},
		"SKETCH2FACE_HISTORY":         {"SKETCH2FACE_HISTORY", History(), "Path to the generation history database"},
		"SKETCH2FACE_MAX_UPLOAD_SIZE": {"SKETCH2FACE_MAX_UPLOAD_SIZE", MaxUploadSize(), "Maximum upload size in bytes (default 16 MiB)"},
		"SKETCH2FACE_NUM_PARALLEL":    {"SKETCH2FACE_NUM_PARALLEL", NumParallel(), "Maximum number of concurrent generator passes"},
		"SKETCH2FACE_THREADS":         {"SKETCH2FACE_THREADS", Threads(), "Worker goroutines per convolution (default: GOMAXPROCS)"},
		"SKETCH2FACE_ORIGINS":         {"SKETCH2FACE_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"SKETCH2FACE_KEEP_UPLOADS":    {"SKETCH2FACE_KEEP_UPLOADS", KeepUploads(true), "Keep uploaded sketches after processing"},
		"SKETCH2FACE_NOHISTORY":       {"SKETCH2FACE_NOHISTORY", NoHistory(), "Do not record generations in the history database"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// config_features.go - Limits, Parallelitaet und Flags
//
// Dieses Modul enthaelt:
// - Upload-Limits
// - Parallelitaets-Einstellungen fuer Inferenz und Kernels
// - Flags fuer die Dateiablage
package envconfig

// =============================================================================
// Upload-Limits
// =============================================================================

var (
	// MaxUploadSize begrenzt die Groesse eines Uploads (in Bytes)
	// Konfigurierbar via SKETCH2FACE_MAX_UPLOAD_SIZE
	// Default: 16 MiB
	MaxUploadSize = Uint64("SKETCH2FACE_MAX_UPLOAD_SIZE", 16<<20)
)

// =============================================================================
// Parallelitaets-Einstellungen
// =============================================================================

var (
	// NumParallel setzt die Anzahl gleichzeitiger Forward-Durchlaeufe
	// Konfigurierbar via SKETCH2FACE_NUM_PARALLEL
	NumParallel = Uint("SKETCH2FACE_NUM_PARALLEL", 1)

	// Threads setzt die Anzahl der Worker pro Faltung
	// Konfigurierbar via SKETCH2FACE_THREADS
	// 0 = GOMAXPROCS
	Threads = Uint("SKETCH2FACE_THREADS", 0)
)

// =============================================================================
// Dateiablage
// =============================================================================

var (
	// KeepUploads behaelt hochgeladene Dateien nach der Verarbeitung
	KeepUploads = BoolWithDefault("SKETCH2FACE_KEEP_UPLOADS")

	// NoHistory schaltet den Generierungs-Verlauf ab
	NoHistory = Bool("SKETCH2FACE_NOHISTORY")
)

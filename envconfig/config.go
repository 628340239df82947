// config.go - Haupt-Konfigurationsfunktionen fuer sketch2face
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host zurueck (SKETCH2FACE_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (SKETCH2FACE_ORIGINS)
// - Checkpoint: Pfad zum Generator-Checkpoint (SKETCH2FACE_CHECKPOINT)
// - Uploads/Outputs/History: Verzeichnisse und Datenbank
// - LogLevel: Gibt Log-Level zurueck (SKETCH2FACE_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Limits, Parallelitaet und Flags
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Host gibt Scheme und Host zurueck
// Konfigurierbar via SKETCH2FACE_HOST
// Default: http://0.0.0.0:5000
func Host() *url.URL {
	defaultPort := "5000"

	s := strings.TrimSpace(Var("SKETCH2FACE_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "0.0.0.0", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// AllowedOrigins gibt erlaubte Origins zurueck
// Konfigurierbar via SKETCH2FACE_ORIGINS (komma-separiert)
// Enthaelt Standard-Origins fuer localhost
func AllowedOrigins() (origins []string) {
	if s := Var("SKETCH2FACE_ORIGINS"); s != "" {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	// Standard-Origins fuer localhost
	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	origins = append(origins, "file://*")
	return origins
}

// Checkpoint gibt den Pfad zum Generator-Checkpoint zurueck
// Konfigurierbar via SKETCH2FACE_CHECKPOINT
// Default: checkpoints/dynamic_best_model.pt
func Checkpoint() string {
	if s := Var("SKETCH2FACE_CHECKPOINT"); s != "" {
		return s
	}
	return filepath.Join("checkpoints", "dynamic_best_model.pt")
}

// Uploads gibt das Verzeichnis fuer hochgeladene Skizzen zurueck
// Konfigurierbar via SKETCH2FACE_UPLOADS
// Default: uploads
func Uploads() string {
	if s := Var("SKETCH2FACE_UPLOADS"); s != "" {
		return s
	}
	return "uploads"
}

// Outputs gibt das Verzeichnis fuer erzeugte Bilder zurueck
// Konfigurierbar via SKETCH2FACE_OUTPUTS
// Default: outputs
func Outputs() string {
	if s := Var("SKETCH2FACE_OUTPUTS"); s != "" {
		return s
	}
	return "outputs"
}

// History gibt den Pfad der sqlite-Datenbank fuer den Verlauf zurueck
// Konfigurierbar via SKETCH2FACE_HISTORY
// Default: <Outputs>/history.db
func History() string {
	if s := Var("SKETCH2FACE_HISTORY"); s != "" {
		return s
	}
	return filepath.Join(Outputs(), "history.db")
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via SKETCH2FACE_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("SKETCH2FACE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

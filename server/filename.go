package server

import (
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// allowedExtensions sind die Endungen, die /upload annimmt.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
}

// allowedFile prueft die Endung nach dem letzten Punkt.
func allowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[i+1:])]
}

var unsafeFilenameChars = regexp2.MustCompile(`[^A-Za-z0-9_.-]`, regexp2.None)

// secureFilename macht aus einem Client-Dateinamen einen sicheren Namen:
// NFKD-Zerlegung, nur ASCII, Pfadtrenner und Leerraum werden zu '_',
// alles ausser [A-Za-z0-9_.-] entfaellt, fuehrende/abschliessende '.' und
// '_' werden entfernt. Das Ergebnis kann leer sein.
func secureFilename(name string) string {
	name = norm.NFKD.String(name)

	var sb strings.Builder
	for _, r := range name {
		if r < 0x80 {
			sb.WriteRune(r)
		}
	}
	name = sb.String()

	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name, err := unsafeFilenameChars.Replace(name, "", -1, -1)
	if err != nil {
		// nur bei Timeout moeglich, der ist nicht gesetzt
		return ""
	}
	return strings.Trim(name, "._")
}

// safeDownloadName lehnt Namen ab, die das Ausgabeverzeichnis verlassen.
func safeDownloadName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name && !strings.Contains(name, "..")
}

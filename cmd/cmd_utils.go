// cmd_utils.go - Gemeinsame Hilfsfunktionen
// Hauptfunktionen: loadGenerator, writeImage, outputPath
package cmd

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sketch2face/sketch2face/checkpoint"
	"github.com/sketch2face/sketch2face/envconfig"
	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/vision"
)

// stdoutName steht fuer die Ausgabe auf stdout
const stdoutName = "-"

// errTerminal wird zurueckgegeben wenn Binaerdaten auf ein Terminal gingen
var errTerminal = errors.New("refusing to write image data to a terminal, use -o FILE or redirect stdout")

// checkpointPath - Flag --checkpoint oder SKETCH2FACE_CHECKPOINT
func checkpointPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("checkpoint")
	return cmp.Or(path, envconfig.Checkpoint())
}

// architecture - Generator-Architektur aus --ngf
func architecture(cmd *cobra.Command) (*generator.Architecture, error) {
	ngf, err := cmd.Flags().GetInt("ngf")
	if err != nil {
		return nil, err
	}
	return generator.New(generator.Config{BaseFilters: ngf})
}

// loadGenerator - Oeffnet den Checkpoint und bindet die Architektur
func loadGenerator(cmd *cobra.Command) (*generator.Generator, *checkpoint.Checkpoint, error) {
	arch, err := architecture(cmd)
	if err != nil {
		return nil, nil, err
	}

	g, cp, err := checkpoint.Load(checkpointPath(cmd), arch)
	if err != nil {
		return nil, nil, err
	}
	return g, cp, nil
}

// defaultOutput - output_<name> neben der Eingabe
func defaultOutput(input string) string {
	return filepath.Join(filepath.Dir(input), "output_"+filepath.Base(input))
}

// writeImage - Kodiert img nach path, das Format folgt der Endung (Default PNG).
// Bei "-" geht PNG nach stdout, aber nie auf ein Terminal.
func writeImage(cmd *cobra.Command, path string, img image.Image) error {
	if path == stdoutName {
		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errTerminal
		}
		return vision.Encode(out, img, vision.FormatPNG)
	}

	format := vision.FormatFromFilename(path)
	if !format.Encodable() {
		return fmt.Errorf("%w: %s", vision.ErrUnsupportedFormat, filepath.Ext(path))
	}

	return writeFile(path, func(w io.Writer) error {
		return vision.Encode(w, img, format)
	})
}

// writeFile - Schreibt atomar ueber eine temporaere Datei im Zielverzeichnis
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// cmd_inspect.go - Checkpoints untersuchen und konvertieren
// Hauptfunktionen: InspectHandler, ConvertHandler
package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/checkpoint"
)

// InspectHandler - Zeigt Struktur, Schichten und Kompatibilitaet an.
// Ein inkompatibler Checkpoint ist kein Fehler des Befehls.
func InspectHandler(cmd *cobra.Command, args []string) error {
	perGroup, _ := cmd.Flags().GetInt("params")

	arch, err := architecture(cmd)
	if err != nil {
		return err
	}

	cp, err := checkpoint.Open(args[0])
	if err != nil {
		return err
	}

	return showSummary(checkpoint.Inspect(cp, arch), perGroup, cmd.OutOrStdout())
}

// ConvertHandler - Schreibt den aufgeloesten state_dict als safetensors.
// Die Ausgabe ist immer "bare", Trainings-Metadaten bleiben erhalten.
func ConvertHandler(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]
	dtype, _ := cmd.Flags().GetString("dtype")
	force, _ := cmd.Flags().GetBool("force")

	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", output)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	arch, err := architecture(cmd)
	if err != nil {
		return err
	}

	cp, err := checkpoint.Open(input)
	if err != nil {
		return err
	}

	sd, conv := cp.StateDict()
	if _, err := checkpoint.Validate(sd, arch); err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	opts := checkpoint.WriteOptions{
		DType:    checkpoint.DType(strings.ToUpper(dtype)),
		Metadata: cp.Metadata().Strings(),
	}
	opts.Metadata["format"] = "pt"
	opts.Metadata["source"] = filepath.Base(input)

	err = writeFile(output, func(w io.Writer) error {
		return checkpoint.WriteSafetensors(w, sd, opts)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Converted %d tensors (%s, %s) to '%s'\n", sd.Len(), conv, opts.DType, output)
	return nil
}

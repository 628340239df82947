// cmd_generate.go - Einmalige Uebersetzung und Test-Skizze
// Hauptfunktionen: GenerateHandler, SketchHandler
package cmd

import (
	"cmp"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/pipeline"
	"github.com/sketch2face/sketch2face/sketch"
)

// GenerateHandler - Uebersetzt eine Skizze mit dem lokalen Checkpoint
func GenerateHandler(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	output = cmp.Or(output, defaultOutput(input))
	verbose, _ := cmd.Flags().GetBool("verbose")

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	g, _, err := loadGenerator(cmd)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), data, pipeline.Direct(g))
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	if err := writeImage(cmd, output, res.Image); err != nil {
		return err
	}

	if verbose {
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "input:            %s (%s, %dx%d)\n", input, res.Format, res.Width, res.Height)
		fmt.Fprintf(stderr, "preprocess:       %s\n", res.Preprocess)
		fmt.Fprintf(stderr, "inference:        %s\n", res.Inference)
		fmt.Fprintf(stderr, "postprocess:      %s\n", res.Postprocess)
		fmt.Fprintf(stderr, "total:            %s\n", res.Total())
	}
	if output != stdoutName {
		fmt.Fprintf(cmd.ErrOrStderr(), "Face saved as '%s'\n", output)
	}
	return nil
}

// SketchHandler - Zeichnet die synthetische Test-Skizze
func SketchHandler(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	size, _ := cmd.Flags().GetInt("size")
	if size <= 0 {
		return fmt.Errorf("invalid size %d", size)
	}

	if err := writeImage(cmd, output, sketch.Face(size)); err != nil {
		return err
	}

	if output != stdoutName {
		fmt.Fprintf(cmd.ErrOrStderr(), "Test sketch saved as '%s'\n", output)
	}
	return nil
}

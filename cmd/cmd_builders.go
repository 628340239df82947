// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newServeCmd, newGenerateCmd, newInspectCmd, etc.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/sketch"
)

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the web server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}

	serveCmd.Flags().String("checkpoint", "", "Generator checkpoint (default $SKETCH2FACE_CHECKPOINT)")
	return serveCmd
}

// newGenerateCmd - Erstellt den generate Command
func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate SKETCH",
		Short: "Translate a sketch into a face",
		Args:  cobra.ExactArgs(1),
		RunE:  GenerateHandler,
	}

	generateCmd.Flags().StringP("output", "o", "", "Output file, - for stdout (default output_<SKETCH>)")
	generateCmd.Flags().String("checkpoint", "", "Generator checkpoint (default $SKETCH2FACE_CHECKPOINT)")
	generateCmd.Flags().Bool("verbose", false, "Show timings")
	return generateCmd
}

// newInspectCmd - Erstellt den inspect Command
func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect CHECKPOINT",
		Short: "Show the structure of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}

	inspectCmd.Flags().Int("params", 3, "Parameters shown per layer group (0 = all)")
	return inspectCmd
}

// newConvertCmd - Erstellt den convert Command
func newConvertCmd() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert CHECKPOINT OUTPUT",
		Short: "Convert a checkpoint to safetensors",
		Args:  cobra.ExactArgs(2),
		RunE:  ConvertHandler,
	}

	convertCmd.Flags().String("dtype", "F32", "Float type of the output: F32, F16 or BF16")
	convertCmd.Flags().Bool("force", false, "Overwrite OUTPUT if it exists")
	return convertCmd
}

// newSketchCmd - Erstellt den sketch Command
func newSketchCmd() *cobra.Command {
	sketchCmd := &cobra.Command{
		Use:   "sketch",
		Short: "Draw a synthetic test sketch",
		Args:  cobra.ExactArgs(0),
		RunE:  SketchHandler,
	}

	sketchCmd.Flags().StringP("output", "o", "test_sketch.png", "Output file, - for stdout")
	sketchCmd.Flags().Int("size", sketch.DefaultSize, "Edge length in pixels")
	return sketchCmd
}

// newVersionCmd - Erstellt den version Command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.ExactArgs(0),
		Run:   versionHandler,
	}
}

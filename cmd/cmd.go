// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs, initLogging
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/envconfig"
	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/logutil"
	"github.com/sketch2face/sketch2face/ml/nn"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-28s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// initLogging - Setzt den Default-Logger und die Kernel-Worker
func initLogging(*cobra.Command, []string) {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	nn.SetWorkers(int(envconfig.Threads()))
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:              "sketch2face",
		Short:            "Translate line sketches into faces",
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRun: initLogging,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().Int("ngf", generator.DefaultBaseFilters, "Base filter count of the generator")

	// Commands erstellen
	serveCmd := newServeCmd()
	generateCmd := newGenerateCmd()
	inspectCmd := newInspectCmd()
	convertCmd := newConvertCmd()
	sketchCmd := newSketchCmd()
	versionCmd := newVersionCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{serveCmd, generateCmd, inspectCmd, convertCmd} {
		switch cmd {
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["SKETCH2FACE_DEBUG"],
				envVars["SKETCH2FACE_HOST"],
				envVars["SKETCH2FACE_CHECKPOINT"],
				envVars["SKETCH2FACE_UPLOADS"],
				envVars["SKETCH2FACE_OUTPUTS"],
				envVars["SKETCH2FACE_HISTORY"],
				envVars["SKETCH2FACE_KEEP_UPLOADS"],
				envVars["SKETCH2FACE_NOHISTORY"],
				envVars["SKETCH2FACE_MAX_UPLOAD_SIZE"],
				envVars["SKETCH2FACE_NUM_PARALLEL"],
				envVars["SKETCH2FACE_THREADS"],
				envVars["SKETCH2FACE_ORIGINS"],
			})
		case generateCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["SKETCH2FACE_DEBUG"],
				envVars["SKETCH2FACE_CHECKPOINT"],
				envVars["SKETCH2FACE_THREADS"],
			})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["SKETCH2FACE_DEBUG"]})
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		generateCmd,
		inspectCmd,
		convertCmd,
		sketchCmd,
		versionCmd,
	)

	return rootCmd
}

// cmd_serve.go - Server-Start und Version
// Hauptfunktionen: RunServer, versionHandler
package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/envconfig"
	"github.com/sketch2face/sketch2face/server"
	"github.com/sketch2face/sketch2face/store"
	"github.com/sketch2face/sketch2face/version"
)

// RunServer - Laedt den Checkpoint und startet den Server. Ein Ladefehler
// beendet den Befehl, ohne Generator wird nichts bedient.
func RunServer(cmd *cobra.Command, _ []string) error {
	slog.Info("server config", "env", envconfig.Values())

	g, cp, err := loadGenerator(cmd)
	if err != nil {
		return err
	}

	opts := server.OptionsFromEnv()
	opts.Checkpoint = cp

	if !envconfig.NoHistory() {
		history, err := store.Open(envconfig.History())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer history.Close()
		opts.History = history
	}

	s, err := server.New(g, opts)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	return server.Serve(cmd.Context(), ln, s)
}

// versionHandler - Zeigt die Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "sketch2face version is %s\n", version.Version)
}

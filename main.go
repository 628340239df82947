package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sketch2face/sketch2face/cmd"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}

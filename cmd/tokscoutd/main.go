package main

import (
	"fmt"
	"os"

	"github.com/scout-labs/tokscout/internal/cli"
	"github.com/scout-labs/tokscout/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tokscoutd",
		Short: "Tokscout daemon and CLI",
		Long:  "Tokscout daemon for running the recommendation API server and managing preference profiles",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ProfileCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "esportsync",
		Short:        "esportsync - PandaScore sync and cache tooling",
		Long:         "Run syncs against PandaScore, inspect sync plans and query a running server's request budget",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		syncCmd(),
		planCmd(),
		statsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

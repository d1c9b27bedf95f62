package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "numium",
	Short:         "Authorization-gated balance ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RegisterCommands(cmds ...*cobra.Command) {
	for _, c := range cmds {
		rootCmd.AddCommand(c)
	}
}

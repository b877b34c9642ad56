package cmd

import (
	"os"

	"github.com/rskv-p/srtmacro/cmd/cmd_bus"
	"github.com/rskv-p/srtmacro/cmd/cmd_macro"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "srtmacro",
	Short:        "SRT ticket macro controller",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmd_macro.ConfigPath, "config", "", "Path to the JSON config file")
	rootCmd.AddCommand(cmd_macro.Commands()...)
	rootCmd.AddCommand(cmd_bus.Cmd)
}

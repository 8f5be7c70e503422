package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := rootCMD().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// rootCMD runs the TUI when called without a subcommand.
func rootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Terminal chat client for the JioPay RAG backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	root.AddCommand(askCMD(&cfgPath), reindexCMD(&cfgPath), healthCMD(&cfgPath))
	return root
}

func fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}

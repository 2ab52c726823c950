package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes exposed to callers and scripts.
const (
	ExitSuccess        = 0
	ExitPartialFailure = 1
	ExitRunNotStarted  = 2
)

// exitCode is set by subcommands that completed but want a non-zero exit
// (partial failure). Fatal errors surface through RunE instead.
var exitCode = ExitSuccess

var configPath string

var rootCmd = &cobra.Command{
	Use:           "jpegbatch",
	Short:         "Batch JPEG downloader",
	Long:          "Downloads a list of JPEG files from URLs into a specified output directory.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitRunNotStarted)
	}
	os.Exit(exitCode)
}

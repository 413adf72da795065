package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "unknown"

var commandVersion = &cobra.Command{
	Use:   "version",
	Short: "Print current version of js-logs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		versionString := "js-logs version " + version + "\n\n"
		versionString += "Environment: " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + "\n"
		os.Stdout.WriteString(versionString)
	},
}

func init() {
	mainCommand.AddCommand(commandVersion)
}

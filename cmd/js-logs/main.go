package main

import (
	"io"
	"os"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/option"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	workingDir   string
	disableColor bool
)

var mainCommand = &cobra.Command{
	Use:              "js-logs",
	Short:            "Capture console output and relay it over a resilient log channel",
	PersistentPreRun: preRun,
	SilenceUsage:     true,
}

func init() {
	mainCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "set configuration file path, stdin to read from standard input")
	mainCommand.PersistentFlags().StringVarP(&workingDir, "directory", "D", "", "set working directory")
	mainCommand.PersistentFlags().BoolVarP(&disableColor, "disable-color", "", false, "disable color output")
}

func main() {
	if err := mainCommand.Execute(); err != nil {
		log.Fatal(err)
	}
}

func preRun(cmd *cobra.Command, args []string) {
	if workingDir != "" {
		err := os.Chdir(workingDir)
		if err != nil {
			log.Fatal(E.Cause(err, "change working directory"))
		}
	}
}

func readConfig() (option.Options, error) {
	var (
		content []byte
		err     error
	)
	switch configPath {
	case "":
		return applyFlags(option.Options{}), nil
	case "stdin":
		content, err = io.ReadAll(os.Stdin)
	default:
		content, err = os.ReadFile(configPath)
	}
	if err != nil {
		return option.Options{}, E.Cause(err, "read config at ", configPath)
	}
	options, err := option.Parse(content)
	if err != nil {
		return option.Options{}, E.Cause(err, "decode config at ", configPath)
	}
	return applyFlags(options), nil
}

func applyFlags(options option.Options) option.Options {
	if disableColor {
		if options.Log == nil {
			options.Log = &option.LogOptions{}
		}
		options.Log.DisableColor = true
	}
	return options
}

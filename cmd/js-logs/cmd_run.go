package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	jslogs "github.com/jupyterlab-contrib/jupyterlab-js-logs"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/capture"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/spf13/cobra"
)

var commandRun = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command and relay its output",
	Long: `Run a command with its standard output captured as console.log and its
standard error captured as console.error. Output still reaches the terminal.
The exit status of the command is preserved.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code, err := runCommand(args)
		if err != nil {
			log.Fatal(err)
		}
		os.Exit(code)
	},
}

func init() {
	mainCommand.AddCommand(commandRun)
}

func runCommand(args []string) (int, error) {
	options, err := readConfig()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	console := capture.StdConsole(os.Stdout, os.Stderr)
	instance, err := jslogs.New(jslogs.Options{
		Options: options,
		Context: ctx,
		Console: console,
	})
	if err != nil {
		return 0, err
	}
	defer instance.Close()
	err = instance.Start()
	if err != nil {
		return 0, err
	}

	code, err := runChild(ctx, console, args)
	if channel := instance.Channel(); channel != nil {
		drainCtx, drainCancel := context.WithTimeout(ctx, C.StopTimeout)
		drainErr := channel.Drain(drainCtx)
		drainCancel()
		if drainErr != nil {
			instance.Logger().Warn(E.Cause(drainErr, "drain log channel"))
		}
	}
	return code, err
}

func runChild(ctx context.Context, console *capture.Console, args []string) (int, error) {
	child := exec.CommandContext(ctx, args[0], args[1:]...)
	child.Stdin = os.Stdin
	stdout, err := child.StdoutPipe()
	if err != nil {
		return 0, err
	}
	stderr, err := child.StderrPipe()
	if err != nil {
		return 0, err
	}
	err = child.Start()
	if err != nil {
		return 0, E.Cause(err, "start ", args[0])
	}
	var group sync.WaitGroup
	group.Add(2)
	go func() {
		defer group.Done()
		pumpLines(stdout, console.Log)
	}()
	go func() {
		defer group.Done()
		pumpLines(stderr, console.Error)
	}()
	group.Wait()
	err = child.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func pumpLines(reader io.Reader, emit func(args ...any)) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

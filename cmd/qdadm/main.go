package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/quazardous/qdadm-go/internal/app"
	"github.com/quazardous/qdadm-go/internal/cli"
)

// main is the entrypoint for the qdadm demo binary.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the program for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, parseErr := cli.Parse(args, outW)
	if parseErr != nil {
		return parseErr
	}
	if shouldExit {
		return nil
	}

	// The app panics on fatal assembly errors (unreadable profile,
	// invalid module set); recover them into a clean error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	qdadmApp := app.NewApp(outW, appConfig)
	return qdadmApp.Run(context.Background())
}

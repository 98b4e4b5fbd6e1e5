// main package for the tts-cli
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/cli"
	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/synth"
)

const (
	dotEnvFile       = ".env"
	bootstrapLogFile = "tts-cli-bootstrap.log"
	logFile          = "tts-cli.log"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func closeLogger(log *logger.Logger, stderr io.Writer) {
	err := log.Close()
	if err != nil {
		fmt.Fprintf(stderr, "error closing logger: %v\n", err)
	}
}

// loadConfig resolves the configuration with a throwaway bootstrap logger,
// then applies the command-line overrides.
func loadConfig(inv cli.Invocation, lookup config.LookupFunc, stderr io.Writer) (*config.Config, error) {
	err := config.LoadDotEnv(dotEnvFile)
	if err != nil {
		return nil, err
	}

	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, err
	}
	defer closeLogger(bootstrapLog, stderr)

	cfg, err := config.Resolve(inv.ConfigPath, lookup, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.ApplyOverrides(inv.Overrides)

	err = cfg.Validate()
	if err != nil {
		bootstrapLog.Error("Invalid configuration: %v", err)

		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// run executes one invocation and returns the exit code. Usage problems are
// detected before any file is touched.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	inv, err := cli.Parse(argv)
	if err != nil {
		cli.WriteUsage(stdout, argv, err)

		return cli.ExitUsage
	}

	cfg, err := loadConfig(inv, lookup, stderr)
	if err != nil {
		return cli.Fail(stdout, err)
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		return cli.Fail(stdout, err)
	}
	defer closeLogger(log, stderr)

	return cli.New(cfg, synth.New, log, stdout).Execute(ctx, inv)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx, os.Args, os.Stdout, os.Stderr, os.LookupEnv)

	stop()
	os.Exit(code)
}

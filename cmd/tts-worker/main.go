// main package for the tts-worker
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/objectstore"
	"github.com/book-expert/tts-cli/internal/synth"
	"github.com/book-expert/tts-cli/internal/text"
	"github.com/book-expert/tts-cli/internal/worker"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

const (
	bootstrapLogFile = "tts-worker-bootstrap.log"
	logFile          = "tts-worker.log"
	dotEnvFile       = ".env"
	natsClientName   = "tts-worker"
)

// ErrConnectionClosed is returned when the NATS connection closes for good.
var ErrConnectionClosed = errors.New("NATS connection closed")

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func loadConfig(configPath string) (*config.Config, error) {
	err := config.LoadDotEnv(dotEnvFile)
	if err != nil {
		return nil, err
	}

	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, err
	}
	defer bootstrapLog.Close()

	cfg, err := config.Resolve(configPath, os.LookupEnv, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		bootstrapLog.Error("Invalid configuration: %v", err)

		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	return cfg, nil
}

func newWorker(ctx context.Context, cfg *config.Config, natsConnection *nats.Conn, log *logger.Logger) (*worker.NatsWorker, error) {
	js, err := natsConnection.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	texts, err := objectstore.Open(js, cfg.NATS.TextObjectStoreBucket)
	if err != nil {
		return nil, err
	}

	audio, err := objectstore.Open(js, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return nil, err
	}

	engine, err := synth.New(cfg)
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend()
	log.Info("Loading %s model %s", engine.Name(), backend.ModelName)

	synthesizer, err := engine.Load(ctx, backend.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s model %s: %w", engine.Name(), backend.ModelName, err)
	}

	opts := []worker.Option{
		worker.WithJobTimeout(time.Duration(cfg.TTS.TimeoutSeconds) * time.Second),
	}
	if cfg.Text.Normalize {
		opts = append(opts, worker.WithNormalizer(text.NewNormalizer()))
	}

	return worker.NewNatsWorker(natsConnection, cfg.NATS.RequestSubject, texts, audio,
		synthesizer, backend.Options(), log, opts...)
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	closed := make(chan struct{})

	natsConnection, err := nats.Connect(cfg.NATS.URL,
		nats.Name(natsClientName),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		log.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	w, err := newWorker(ctx, cfg, natsConnection, log)
	if err != nil {
		log.Error("Failed to initialize worker: %v", err)

		return err
	}

	log.System("TTS worker initialized. Listening for jobs on subject: %s", cfg.NATS.RequestSubject)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return w.Run(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return nil
		case <-closed:
			return ErrConnectionClosed
		}
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.System("TTS worker stopped.")

	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML or YAML config file (defaults to project discovery)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, *configPath)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Worker exited with error: %v\n", err)
		os.Exit(1)
	}
}

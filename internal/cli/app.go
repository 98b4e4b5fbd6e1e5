package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/fsutil"
	"github.com/book-expert/tts-cli/internal/synth"
	"github.com/book-expert/tts-cli/internal/text"
)

// User-facing messages. The engine tag ("[Coqui] ") is prepended.
const (
	msgLoadingModel = "Loading model %s...\n"
	msgSynthesizing = "Synthesizing: %s\n"
	msgSaved        = "Saved to %s\n"
	msgHealthy      = "Backend ready (model %s)\n"
	errorPrefix     = "[TTS ERROR]"
)

// Log formats.
const (
	logFmtInvocation = "Synthesis requested: engine=%s model=%s speaker=%q language=%q output=%s"
	logFmtNormalized = "Normalized text: %q"
	logFmtGenerated  = "Generated audio: %s (%s, %s) in %s"
	logFmtFailed     = "Synthesis failed: %v"
)

// App runs one synthesis with a fixed configuration.
type App struct {
	cfg        *config.Config
	engines    synth.Factory
	log        *logger.Logger
	stdout     io.Writer
	normalizer *text.Normalizer
}

// New creates an App. cfg must already carry environment and flag overrides.
func New(cfg *config.Config, engines synth.Factory, log *logger.Logger, stdout io.Writer) *App {
	return &App{
		cfg:        cfg,
		engines:    engines,
		log:        log,
		stdout:     stdout,
		normalizer: text.NewNormalizer(),
	}
}

// Execute runs an invocation that Parse accepted and returns the process exit
// code. Every error is reported here and nowhere else.
func (a *App) Execute(ctx context.Context, inv Invocation) int {
	if a.cfg.TTS.TimeoutSeconds > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.TTS.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	err := a.execute(ctx, inv)
	if err == nil {
		return ExitOK
	}

	a.log.Error(logFmtFailed, err)

	return Fail(a.stdout, err)
}

// Fail prints err the way the wrapper reports backend failures and returns
// ExitBackend.
func Fail(w io.Writer, err error) int {
	fmt.Fprintln(w, errorPrefix, err)

	return ExitBackend
}

func (a *App) execute(ctx context.Context, inv Invocation) error {
	backend := a.cfg.Backend()

	engine, err := a.engines(a.cfg)
	if err != nil {
		return core.NewBackendError(core.OpLoad, "", err)
	}

	tag := "[" + engine.Name() + "] "

	if inv.Health {
		return a.health(ctx, engine, backend, tag)
	}

	req := inv.Request
	if a.cfg.Text.Normalize {
		req.Text = a.normalizer.Normalize(req.Text)
		a.log.Info(logFmtNormalized, req.Text)
	}

	if req.Text == "" {
		return core.NewBackendError(core.OpPrepare, engine.Name(), core.ErrTextEmpty)
	}

	a.log.Info(logFmtInvocation, backend.Engine, backend.ModelName,
		backend.Speaker, backend.Language, req.OutputPath)

	err = fsutil.EnsureParentDir(req.OutputPath)
	if err != nil {
		return core.NewBackendError(core.OpPrepare, engine.Name(), err)
	}

	a.printf(tag+msgLoadingModel, backend.ModelName)

	synthesizer, err := engine.Load(ctx, backend.ModelName)
	if err != nil {
		return core.NewBackendError(core.OpLoad, engine.Name(), err)
	}

	a.printf(tag+msgSynthesizing, req.Text)

	start := time.Now()

	err = synthesizer.Synthesize(ctx, req, backend.Options())
	if err != nil {
		return core.NewBackendError(core.OpSynthesize, engine.Name(), err)
	}

	size, err := fsutil.FileSize(req.OutputPath)
	if err != nil {
		return core.NewBackendError(core.OpVerify, engine.Name(),
			fmt.Errorf("%w: %w", core.ErrOutputMissing, err))
	}

	a.printf(tag+msgSaved, req.OutputPath)
	a.logGenerated(req.OutputPath, size, time.Since(start))

	return nil
}

func (a *App) health(ctx context.Context, engine core.Engine, backend core.BackendConfig, tag string) error {
	a.printf(tag+msgLoadingModel, backend.ModelName)

	_, err := engine.Load(ctx, backend.ModelName)
	if err != nil {
		return core.NewBackendError(core.OpLoad, engine.Name(), err)
	}

	a.printf(tag+msgHealthy, backend.ModelName)
	a.log.Info("Health check passed for %s", engine.Name())

	return nil
}

func (a *App) logGenerated(path string, size int64, elapsed time.Duration) {
	format := string(audio.FormatUnknown)

	info, err := audio.ProbeFile(path)
	if err == nil {
		format = info.String()
	}

	a.log.Info(logFmtGenerated, path, fsutil.FormatFileSize(size), format, elapsed.Round(time.Millisecond))
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

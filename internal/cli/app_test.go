package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/audio/audiotest"
	"github.com/book-expert/tts-cli/internal/cli"
	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendExploded = errors.New("CUDA out of memory")

// fakeEngine records what the App asks of it and writes a small WAV file
// unless told otherwise.
type fakeEngine struct {
	mu sync.Mutex

	loadErr      error
	synthErr     error
	skipWrite    bool
	loadedModels []string
	requests     []core.Request
	options      []core.Options
	parentExists bool
	hadDeadline  bool
}

func (f *fakeEngine) Name() string { return "Fake" }

func (f *fakeEngine) Load(ctx context.Context, modelName string) (core.Synthesizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loadedModels = append(f.loadedModels, modelName)
	_, f.hadDeadline = ctx.Deadline()

	if f.loadErr != nil {
		return nil, f.loadErr
	}

	return f, nil
}

func (f *fakeEngine) Synthesize(_ context.Context, req core.Request, opts core.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	f.options = append(f.options, opts)

	info, err := os.Stat(filepath.Dir(req.OutputPath))
	f.parentExists = err == nil && info.IsDir()

	if f.synthErr != nil {
		return f.synthErr
	}

	if f.skipWrite {
		return nil
	}

	return os.WriteFile(req.OutputPath, audiotest.BuildWAV(make([]byte, 3200), 16000, 1), 0o600)
}

func factoryFor(engine core.Engine) synth.Factory {
	return func(*config.Config) (core.Engine, error) {
		return engine, nil
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func runApp(t *testing.T, cfg *config.Config, factory synth.Factory, inv cli.Invocation) (int, string) {
	t.Helper()

	var stdout bytes.Buffer

	app := cli.New(cfg, factory, newTestLogger(t), &stdout)
	code := app.Execute(context.Background(), inv)

	return code, stdout.String()
}

func invocation(text, outputPath string) cli.Invocation {
	return cli.Invocation{Request: core.Request{Text: text, OutputPath: outputPath}}
}

func TestExecute_HelloWorld(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	outputPath := filepath.Join(t.TempDir(), "runtime", "out.wav")

	code, stdout := runApp(t, config.Default(), factoryFor(engine), invocation("Hello world", outputPath))

	require.Equal(t, cli.ExitOK, code, stdout)
	assert.True(t, engine.parentExists, "parent directory must exist before synthesis")
	assert.Equal(t, []string{config.DefaultModelName}, engine.loadedModels)
	assert.Equal(t, []core.Request{{Text: "Hello world", OutputPath: outputPath}}, engine.requests)
	assert.Equal(t, []core.Options{{}}, engine.options)

	assert.Contains(t, stdout, "[Fake] Loading model "+config.DefaultModelName+"...")
	assert.Contains(t, stdout, "[Fake] Synthesizing: Hello world")
	assert.Contains(t, stdout, "[Fake] Saved to "+outputPath)
	assert.NotContains(t, stdout, "[TTS ERROR]")

	_, err := os.Stat(outputPath)
	require.NoError(t, err)
}

func TestExecute_ExistingDirectory(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	outputPath := filepath.Join(t.TempDir(), "out.wav")

	code, _ := runApp(t, config.Default(), factoryFor(engine), invocation("first", outputPath))
	require.Equal(t, cli.ExitOK, code)

	code, _ = runApp(t, config.Default(), factoryFor(engine), invocation("second", outputPath))
	require.Equal(t, cli.ExitOK, code)
	assert.Len(t, engine.requests, 2)
}

func TestExecute_BackendFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		engine     *fakeEngine
		wantDetail string
	}{
		{
			name:       "load failure",
			engine:     &fakeEngine{loadErr: errBackendExploded},
			wantDetail: "Fake load failed: CUDA out of memory",
		},
		{
			name:       "synthesis failure",
			engine:     &fakeEngine{synthErr: errBackendExploded},
			wantDetail: "Fake synthesize failed: CUDA out of memory",
		},
		{
			name:       "no audio written",
			engine:     &fakeEngine{skipWrite: true},
			wantDetail: core.ErrOutputMissing.Error(),
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			outputPath := filepath.Join(t.TempDir(), "runtime", "out.wav")

			code, stdout := runApp(t, config.Default(), factoryFor(testCase.engine), invocation("Hello", outputPath))

			assert.Equal(t, cli.ExitBackend, code)
			assert.Contains(t, stdout, "[TTS ERROR]")
			assert.Contains(t, stdout, testCase.wantDetail)
			assert.NotContains(t, stdout, "Saved to")
		})
	}
}

func TestExecute_FactoryFailure(t *testing.T) {
	t.Parallel()

	failing := func(*config.Config) (core.Engine, error) {
		return nil, core.ErrUnknownEngine
	}

	code, stdout := runApp(t, config.Default(), failing, invocation("Hello", filepath.Join(t.TempDir(), "a.wav")))

	assert.Equal(t, cli.ExitBackend, code)
	assert.Contains(t, stdout, "[TTS ERROR] load failed: unsupported TTS engine")
}

func TestExecute_ParentIsFile(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "runtime")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	engine := &fakeEngine{}

	code, stdout := runApp(t, config.Default(), factoryFor(engine), invocation("Hello", filepath.Join(blocker, "out.wav")))

	assert.Equal(t, cli.ExitBackend, code)
	assert.Contains(t, stdout, "[TTS ERROR] Fake prepare failed")
	assert.Empty(t, engine.loadedModels, "backend must not run when the directory cannot be created")
}

func TestExecute_ProfileOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.ApplyOverrides(config.Overrides{Profile: config.ProfileXTTS})

	engine := &fakeEngine{}

	code, _ := runApp(t, cfg, factoryFor(engine), invocation("Hello", filepath.Join(t.TempDir(), "out.wav")))

	require.Equal(t, cli.ExitOK, code)
	assert.Equal(t, []string{"tts_models/multilingual/multi-dataset/xtts_v2"}, engine.loadedModels)
	assert.Equal(t, []core.Options{{Speaker: "Daisy Studious", Language: "en"}}, engine.options)
}

func TestExecute_Normalize(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Text.Normalize = true

	engine := &fakeEngine{}

	code, stdout := runApp(t, cfg, factoryFor(engine), invocation("Dr.  Smith has 3 cats", filepath.Join(t.TempDir(), "out.wav")))

	require.Equal(t, cli.ExitOK, code)
	require.Len(t, engine.requests, 1)
	assert.Equal(t, "Doctor Smith has three cats.", engine.requests[0].Text)
	assert.Contains(t, stdout, "Synthesizing: Doctor Smith has three cats.")
}

func TestExecute_NormalizedToNothing(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Text.Normalize = true

	engine := &fakeEngine{}
	outputPath := filepath.Join(t.TempDir(), "runtime", "out.wav")

	code, stdout := runApp(t, cfg, factoryFor(engine), invocation("[3]", outputPath))

	assert.Equal(t, cli.ExitBackend, code)
	assert.Contains(t, stdout, "[TTS ERROR] Fake prepare failed: "+core.ErrTextEmpty.Error())
	assert.NotContains(t, stdout, "Usage:")
	assert.Empty(t, engine.loadedModels)
	assert.NoDirExists(t, filepath.Dir(outputPath))
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TTS.TimeoutSeconds = 30

	engine := &fakeEngine{}

	code, _ := runApp(t, cfg, factoryFor(engine), invocation("Hello", filepath.Join(t.TempDir(), "out.wav")))

	require.Equal(t, cli.ExitOK, code)
	assert.True(t, engine.hadDeadline)
}

func TestExecute_Health(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}

	code, stdout := runApp(t, config.Default(), factoryFor(engine), cli.Invocation{Health: true})

	require.Equal(t, cli.ExitOK, code)
	assert.Contains(t, stdout, "[Fake] Backend ready")
	assert.Empty(t, engine.requests)

	broken := &fakeEngine{loadErr: errBackendExploded}

	code, stdout = runApp(t, config.Default(), factoryFor(broken), cli.Invocation{Health: true})

	assert.Equal(t, cli.ExitBackend, code)
	assert.Contains(t, stdout, "[TTS ERROR]")
}

func TestFail(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	code := cli.Fail(&out, errBackendExploded)

	assert.Equal(t, cli.ExitBackend, code)
	assert.Equal(t, "[TTS ERROR] CUDA out of memory\n", out.String())
}

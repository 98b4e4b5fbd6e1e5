// Package coqui synthesizes speech with the Coqui TTS command-line program
// (`tts`, installed by `pip install TTS`).
package coqui

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/synth/command"
)

// Compile-time interface assertions.
var (
	_ core.Engine      = (*Engine)(nil)
	_ core.Synthesizer = (*Model)(nil)
)

// Name is the tag printed in front of progress messages.
const Name = "Coqui"

// Command-line flags of the Coqui tts program.
const (
	flagText       = "--text"
	flagModelName  = "--model_name"
	flagOutPath    = "--out_path"
	flagSpeakerIdx = "--speaker_idx"
	flagLanguage   = "--language_idx"
	envTTSHome     = "TTS_HOME"
)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithRunner replaces the process runner.
func WithRunner(r command.Runner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// WithLookPath replaces the executable lookup.
func WithLookPath(fn command.LookPathFunc) Option {
	return func(e *Engine) {
		e.lookPath = fn
	}
}

// WithTTSHome sets the TTS_HOME directory where Coqui keeps downloaded models.
func WithTTSHome(dir string) Option {
	return func(e *Engine) {
		e.ttsHome = dir
	}
}

// Engine loads Coqui models through the tts executable.
type Engine struct {
	binPath  string
	ttsHome  string
	runner   command.Runner
	lookPath command.LookPathFunc
}

// New creates an Engine that runs binPath (e.g. "tts").
func New(binPath string, opts ...Option) *Engine {
	e := &Engine{
		binPath:  binPath,
		ttsHome:  "",
		runner:   command.ExecRunner{},
		lookPath: exec.LookPath,
	}
	for _, o := range opts {
		o(e)
	}

	return e
}

// Name implements core.Engine.
func (e *Engine) Name() string {
	return Name
}

// Load resolves the tts executable. The model itself is downloaded and loaded
// by the executable on each run.
func (e *Engine) Load(_ context.Context, modelName string) (core.Synthesizer, error) {
	if modelName == "" {
		return nil, core.ErrModelEmpty
	}

	path, err := e.lookPath(e.binPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrBinaryNotFound, e.binPath, err)
	}

	return &Model{
		engine:    e,
		binPath:   path,
		modelName: modelName,
	}, nil
}

// Model is a Coqui model bound to a resolved executable.
type Model struct {
	engine    *Engine
	binPath   string
	modelName string
}

// ModelName returns the Coqui model identifier.
func (m *Model) ModelName() string {
	return m.modelName
}

// Synthesize runs `tts` once and lets it write req.OutputPath.
func (m *Model) Synthesize(ctx context.Context, req core.Request, opts core.Options) error {
	if req.Text == "" {
		return core.ErrTextEmpty
	}

	if req.OutputPath == "" {
		return core.ErrOutputPathEmpty
	}

	_, err := m.engine.runner.Run(ctx, m.command(req, opts))
	if err != nil {
		return fmt.Errorf("coqui synthesis with %s: %w", m.modelName, err)
	}

	return nil
}

func (m *Model) command(req core.Request, opts core.Options) command.Command {
	args := []string{
		flagText, req.Text,
		flagModelName, m.modelName,
		flagOutPath, req.OutputPath,
	}

	if opts.Speaker != "" {
		args = append(args, flagSpeakerIdx, opts.Speaker)
	}

	if opts.Language != "" {
		args = append(args, flagLanguage, opts.Language)
	}

	var env []string
	if m.engine.ttsHome != "" {
		env = append(env, envTTSHome+"="+m.engine.ttsHome)
	}

	return command.Command{
		Path:  m.binPath,
		Args:  args,
		Stdin: "",
		Env:   env,
	}
}

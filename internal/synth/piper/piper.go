// Package piper synthesizes speech with the Piper command-line program. The
// text is written to Piper's stdin and Piper writes the WAV file itself.
package piper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/fsutil"
	"github.com/book-expert/tts-cli/internal/synth/command"
)

// Compile-time interface assertions.
var (
	_ core.Engine      = (*Engine)(nil)
	_ core.Synthesizer = (*Voice)(nil)
)

// Name is the tag printed in front of progress messages.
const Name = "Piper"

const (
	flagModel      = "-m"
	flagOutputFile = "-f"
	flagSpeaker    = "--speaker"
	modelExt       = ".onnx"
)

// ResolveFunc maps a voice name to a model path.
type ResolveFunc func(voice, ext string) (string, error)

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

// WithResolver replaces the voice model lookup.
func WithResolver(fn ResolveFunc) Option {
	return func(e *Engine) {
		e.resolve = fn
	}
}

// Engine loads Piper voices.
type Engine struct {
	binPath  string
	runner   command.Runner
	lookPath command.LookPathFunc
	resolve  ResolveFunc
}

// New creates an Engine that runs binPath (e.g. "piper").
func New(binPath string, opts ...Option) *Engine {
	e := &Engine{
		binPath:  binPath,
		runner:   command.ExecRunner{},
		lookPath: exec.LookPath,
		resolve:  fsutil.ResolveModelPath,
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

// Load resolves the piper executable and the voice model. A voice that is not
// found locally is passed through unchanged for Piper to resolve.
func (e *Engine) Load(_ context.Context, voice string) (core.Synthesizer, error) {
	if voice == "" {
		return nil, core.ErrModelEmpty
	}

	path, err := e.lookPath(e.binPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrBinaryNotFound, e.binPath, err)
	}

	model, err := e.resolve(voice, modelExt)
	if errors.Is(err, fsutil.ErrModelNotFound) {
		model = voice
	} else if err != nil {
		return nil, fmt.Errorf("resolve piper voice %s: %w", voice, err)
	}

	return &Voice{
		engine:  e,
		binPath: path,
		model:   model,
	}, nil
}

// Voice is a Piper voice model bound to a resolved executable.
type Voice struct {
	engine  *Engine
	binPath string
	model   string
}

// Model returns the voice model passed to Piper.
func (v *Voice) Model() string {
	return v.model
}

// Synthesize runs Piper once. Piper has no language switch; the language is
// part of the voice, so opts.Language is ignored. opts.Speaker selects a
// speaker id in multi-speaker voices.
func (v *Voice) Synthesize(ctx context.Context, req core.Request, opts core.Options) error {
	if req.Text == "" {
		return core.ErrTextEmpty
	}

	if req.OutputPath == "" {
		return core.ErrOutputPathEmpty
	}

	args := []string{flagModel, v.model, flagOutputFile, req.OutputPath}
	if opts.Speaker != "" {
		args = append(args, flagSpeaker, opts.Speaker)
	}

	_, err := v.engine.runner.Run(ctx, command.Command{
		Path:  v.binPath,
		Args:  args,
		Stdin: req.Text,
		Env:   nil,
	})
	if err != nil {
		return fmt.Errorf("piper synthesis with %s: %w", v.model, err)
	}

	return nil
}

// Package core defines the contracts shared by the CLI wrapper, the synthesis
// backends and the worker.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Request is a single synthesis job: the text to speak and where the audio goes.
type Request struct {
	Text       string
	OutputPath string
}

// Options carries the optional voice parameters of a synthesis call.
// Empty fields leave the choice to the backend.
type Options struct {
	Speaker  string
	Language string
}

// BackendConfig selects the engine and model for one invocation.
type BackendConfig struct {
	Engine    string
	ModelName string
	Speaker   string
	Language  string
}

// Options returns the voice parameters of the backend configuration.
func (b BackendConfig) Options() Options {
	return Options{
		Speaker:  b.Speaker,
		Language: b.Language,
	}
}

// Synthesizer is a loaded model that can turn text into an audio file.
// Implementations write the file at req.OutputPath; the caller owns the
// parent directory.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request, opts Options) error
}

// Engine loads synthesizers for a specific text-to-speech backend.
type Engine interface {
	// Name is the short tag printed in front of progress messages.
	Name() string
	// Load prepares the named model and returns a handle to it.
	Load(ctx context.Context, modelName string) (Synthesizer, error)
}

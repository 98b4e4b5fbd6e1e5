// Package synth selects the text-to-speech engine named by the configuration.
package synth

import (
	"fmt"
	"time"

	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/synth/coqui"
	"github.com/book-expert/tts-cli/internal/synth/coquiserver"
	"github.com/book-expert/tts-cli/internal/synth/piper"
)

// Factory builds the engine for a configuration. The CLI and the worker take
// a Factory so tests can hand in fake engines.
type Factory func(cfg *config.Config) (core.Engine, error)

// New returns the engine for cfg.TTS.Engine.
func New(cfg *config.Config) (core.Engine, error) {
	switch cfg.TTS.Engine {
	case config.EngineCoqui:
		return coqui.New(cfg.Coqui.BinPath, coqui.WithTTSHome(cfg.Coqui.TTSHome)), nil
	case config.EngineCoquiServer:
		engine, err := coquiserver.New(cfg.Coqui.ServerURL,
			coquiserver.WithAPIMode(coquiserver.APIMode(cfg.Coqui.APIMode)),
			coquiserver.WithTimeout(time.Duration(cfg.TTS.TimeoutSeconds)*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create coqui server engine: %w", err)
		}

		return engine, nil
	case config.EnginePiper:
		return piper.New(cfg.Piper.BinPath), nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownEngine, cfg.TTS.Engine)
	}
}

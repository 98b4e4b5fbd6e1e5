package config

import (
	"fmt"
	"strconv"
)

// Environment variable names.
const (
	EnvCoquiModel     = "COQUI_MODEL"
	EnvEngine         = "TTS_ENGINE"
	EnvProfile        = "TTS_PROFILE"
	EnvSpeaker        = "TTS_SPEAKER"
	EnvLanguage       = "TTS_LANGUAGE"
	EnvTimeout        = "TTS_TIMEOUT_SECONDS"
	EnvTTSHome        = "TTS_HOME"
	EnvCoquiBin       = "COQUI_BIN"
	EnvCoquiServerURL = "COQUI_SERVER_URL"
	EnvCoquiAPIMode   = "COQUI_API_MODE"
	EnvPiperBin       = "PIPER_BIN"
	EnvPiperVoice     = "PIPER_VOICE"
	EnvLogDir         = "TTS_LOG_DIR"
	EnvNATSURL        = "NATS_URL"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides configuration values with the environment variables that
// are set and non-empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	bindings := []struct {
		key string
		dst *string
	}{
		{EnvCoquiModel, &c.Coqui.ModelName},
		{EnvEngine, &c.TTS.Engine},
		{EnvProfile, &c.TTS.Profile},
		{EnvSpeaker, &c.TTS.Speaker},
		{EnvLanguage, &c.TTS.Language},
		{EnvTTSHome, &c.Coqui.TTSHome},
		{EnvCoquiBin, &c.Coqui.BinPath},
		{EnvCoquiServerURL, &c.Coqui.ServerURL},
		{EnvCoquiAPIMode, &c.Coqui.APIMode},
		{EnvPiperBin, &c.Piper.BinPath},
		{EnvPiperVoice, &c.Piper.Voice},
		{EnvLogDir, &c.Paths.BaseLogsDir},
		{EnvNATSURL, &c.NATS.URL},
	}

	for _, b := range bindings {
		if value, ok := lookup(b.key); ok && value != "" {
			*b.dst = value
		}
	}

	if value, ok := lookup(EnvTimeout); ok && value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, value, err)
		}

		c.TTS.TimeoutSeconds = seconds
	}

	return nil
}

// Package config provides the configuration structure for the tts-cli and
// tts-worker binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Engine names accepted in tts.engine.
const (
	EngineCoqui       = "coqui"
	EngineCoquiServer = "coqui-server"
	EnginePiper       = "piper"
)

// Coqui server API modes accepted in coqui.api_mode.
const (
	APIModeStandard = "standard"
	APIModeXTTS     = "xtts"
)

// Built-in defaults.
const (
	DefaultEngine         = EngineCoqui
	DefaultProfile        = ProfileLJSpeech
	DefaultCoquiBin       = "tts"
	DefaultCoquiServerURL = "http://localhost:5002"
	DefaultPiperBin       = "piper"
	DefaultPiperVoice     = "en_US-lessac-medium"
	DefaultNATSURL        = "nats://127.0.0.1:4222"
	DefaultRequestSubject = "tts.synthesize"
	DefaultTextBucket     = "TEXT_FILES"
	DefaultAudioBucket    = "AUDIO_FILES"
)

// Static errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported configuration file format")
	ErrUnknownProfile    = errors.New("unknown profile")
	ErrUnknownAPIMode    = errors.New("unknown coqui api mode")
	ErrServerURLEmpty    = errors.New("coqui.server_url cannot be empty for the coqui-server engine")
	ErrNegativeTimeout   = errors.New("tts.timeout_seconds must be non-negative")
	ErrSpeakerRequired   = errors.New("the coqui-server engine in xtts mode needs a speaker")
)

// TTSConfig selects the engine and the voice parameters.
type TTSConfig struct {
	Engine         string `toml:"engine"          yaml:"engine"`
	Profile        string `toml:"profile"         yaml:"profile"`
	Speaker        string `toml:"speaker"         yaml:"speaker"`
	Language       string `toml:"language"        yaml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// CoquiConfig holds the settings for both Coqui engines.
type CoquiConfig struct {
	ModelName string `toml:"model_name" yaml:"model_name"`
	BinPath   string `toml:"bin_path"   yaml:"bin_path"`
	TTSHome   string `toml:"tts_home"   yaml:"tts_home"`
	ServerURL string `toml:"server_url" yaml:"server_url"`
	APIMode   string `toml:"api_mode"   yaml:"api_mode"`
}

// PiperConfig holds the settings for the Piper engine.
type PiperConfig struct {
	BinPath string `toml:"bin_path" yaml:"bin_path"`
	Voice   string `toml:"voice"    yaml:"voice"`
}

// TextConfig controls input text handling.
type TextConfig struct {
	Normalize bool `toml:"normalize" yaml:"normalize"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir" yaml:"base_logs_dir"`
}

// NATSConfig holds the configuration for the worker.
type NATSConfig struct {
	URL                    string `toml:"url"                       yaml:"url"`
	RequestSubject         string `toml:"request_subject"           yaml:"request_subject"`
	TextObjectStoreBucket  string `toml:"text_object_store_bucket"  yaml:"text_object_store_bucket"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket" yaml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	TTS   TTSConfig   `toml:"tts"   yaml:"tts"`
	Coqui CoquiConfig `toml:"coqui" yaml:"coqui"`
	Piper PiperConfig `toml:"piper" yaml:"piper"`
	Text  TextConfig  `toml:"text"  yaml:"text"`
	Paths PathsConfig `toml:"paths" yaml:"paths"`
	NATS  NATSConfig  `toml:"nats"  yaml:"nats"`
}

// Overrides are the per-invocation values given on the command line.
// Empty fields leave the configuration untouched.
type Overrides struct {
	Engine   string
	Profile  string
	Model    string
	Speaker  string
	Language string
}

// Default returns the built-in configuration. The model name is left empty so
// that the active profile decides it.
func Default() *Config {
	return &Config{
		TTS: TTSConfig{
			Engine:         DefaultEngine,
			Profile:        DefaultProfile,
			Speaker:        "",
			Language:       "",
			TimeoutSeconds: 0,
		},
		Coqui: CoquiConfig{
			ModelName: "",
			BinPath:   DefaultCoquiBin,
			TTSHome:   "",
			ServerURL: DefaultCoquiServerURL,
			APIMode:   APIModeStandard,
		},
		Piper: PiperConfig{
			BinPath: DefaultPiperBin,
			Voice:   DefaultPiperVoice,
		},
		Text: TextConfig{
			Normalize: false,
		},
		Paths: PathsConfig{
			BaseLogsDir: os.TempDir(),
		},
		NATS: NATSConfig{
			URL:                    DefaultNATSURL,
			RequestSubject:         DefaultRequestSubject,
			TextObjectStoreBucket:  DefaultTextBucket,
			AudioObjectStoreBucket: DefaultAudioBucket,
		},
	}
}

// Load loads the project configuration through the central configurator on
// top of the built-in defaults.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	err := configurator.Load(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return cfg, nil
}

// LoadFile reads a TOML or YAML configuration file on top of the built-in
// defaults. The format is chosen by file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables that are already set keep their value. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// ApplyOverrides copies the non-empty command-line values into the config.
// The model override goes to whichever engine is selected after the engine
// override is applied.
func (c *Config) ApplyOverrides(o Overrides) {
	setIfNotEmpty(&c.TTS.Engine, o.Engine)
	setIfNotEmpty(&c.TTS.Profile, o.Profile)
	setIfNotEmpty(&c.TTS.Speaker, o.Speaker)
	setIfNotEmpty(&c.TTS.Language, o.Language)

	if o.Model == "" {
		return
	}

	if c.TTS.Engine == EnginePiper {
		c.Piper.Voice = o.Model
	} else {
		c.Coqui.ModelName = o.Model
	}
}

// Validate reports configuration values no engine can work with.
func (c *Config) Validate() error {
	switch c.TTS.Engine {
	case EngineCoqui, EnginePiper:
	case EngineCoquiServer:
		if c.Coqui.ServerURL == "" {
			return ErrServerURLEmpty
		}
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownEngine, c.TTS.Engine)
	}

	if _, ok := Profiles[c.TTS.Profile]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.TTS.Profile)
	}

	switch c.Coqui.APIMode {
	case APIModeStandard, APIModeXTTS:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAPIMode, c.Coqui.APIMode)
	}

	if c.TTS.TimeoutSeconds < 0 {
		return ErrNegativeTimeout
	}

	if c.TTS.Engine == EngineCoquiServer && c.Coqui.APIMode == APIModeXTTS && c.Backend().Speaker == "" {
		return ErrSpeakerRequired
	}

	return nil
}

// Backend resolves the engine, model and voice for this invocation. Explicit
// values win over the profile; the profile only applies to Coqui engines.
func (c *Config) Backend() core.BackendConfig {
	backend := core.BackendConfig{
		Engine:    c.TTS.Engine,
		ModelName: "",
		Speaker:   c.TTS.Speaker,
		Language:  c.TTS.Language,
	}

	if c.TTS.Engine == EnginePiper {
		backend.ModelName = c.Piper.Voice

		return backend
	}

	profile := Profiles[c.TTS.Profile]

	backend.ModelName = firstNonEmpty(c.Coqui.ModelName, profile.ModelName, DefaultModelName)
	backend.Speaker = firstNonEmpty(backend.Speaker, profile.Speaker)
	backend.Language = firstNonEmpty(backend.Language, profile.Language)

	return backend
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// Resolve builds the configuration for a binary. An explicit path is read with
// LoadFile; otherwise the configurator is asked and the built-in defaults are
// used when it finds nothing. Environment values are applied last.
func Resolve(path string, lookup LookupFunc, log *logger.Logger) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	if path != "" {
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = Load(log)
		if err != nil {
			log.Warn("Using built-in defaults: %v", err)

			cfg = Default()
		}
	}

	err = cfg.ApplyEnv(lookup)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

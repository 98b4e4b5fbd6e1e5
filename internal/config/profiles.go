package config

// DefaultModelName is the model used when neither configuration, environment
// nor profile name one.
const DefaultModelName = "tts_models/en/ljspeech/tacotron2-DDC"

// Profile names.
const (
	ProfileLJSpeech = "ljspeech"
	ProfileXTTS     = "xtts"
)

// Profile is a named set of Coqui defaults.
type Profile struct {
	ModelName string
	Speaker   string
	Language  string
}

// Profiles lists the built-in Coqui presets. ljspeech is the single-speaker
// English model; xtts is the multilingual model with a studio speaker.
var Profiles = map[string]Profile{
	ProfileLJSpeech: {
		ModelName: DefaultModelName,
		Speaker:   "",
		Language:  "",
	},
	ProfileXTTS: {
		ModelName: "tts_models/multilingual/multi-dataset/xtts_v2",
		Speaker:   "Daisy Studious",
		Language:  "en",
	},
}

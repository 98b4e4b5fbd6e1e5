package coquiserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/tts-cli/internal/audio/audiotest"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/synth/coquiserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createMockTTSServer creates a mock HTTP server that routes by path.
func createMockTTSServer(
	t *testing.T,
	responses map[string]http.HandlerFunc,
) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, request *http.Request) {
				handler, exists := responses[request.URL.Path]
				if !exists {
					t.Errorf("Unexpected request path: %s", request.URL.Path)
					responseWriter.WriteHeader(http.StatusNotFound)

					return
				}

				handler(responseWriter, request)
			},
		),
	)
	t.Cleanup(server.Close)

	return server
}

func detailsHandler(model string) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(responseWriter).Encode(map[string]any{
			"model_name": model,
			"language":   "en",
			"speakers":   nil,
		})
	}
}

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := coquiserver.New("")
	require.ErrorIs(t, err, coquiserver.ErrServerURLEmpty)
}

func TestStandardMode_Synthesize(t *testing.T) {
	t.Parallel()

	wav := audiotest.BuildWAV(make([]byte, 320), 16000, 1)

	var gotQuery map[string]string

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/details": detailsHandler("tts_models/en/ljspeech/tacotron2-DDC"),
		"/api/tts": func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodGet, request.Method)

			gotQuery = map[string]string{
				"text":        request.URL.Query().Get("text"),
				"speaker_id":  request.URL.Query().Get("speaker_id"),
				"language_id": request.URL.Query().Get("language_id"),
			}

			responseWriter.Header().Set("Content-Type", "audio/wav")
			_, _ = responseWriter.Write(wav)
		},
	})

	engine, err := coquiserver.New(server.URL+"/",
		coquiserver.WithHTTPClient(server.Client()),
		coquiserver.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, "CoquiServer", engine.Name())

	synth, err := engine.Load(context.Background(), "tts_models/en/ljspeech/tacotron2-DDC")
	require.NoError(t, err)

	model, ok := synth.(*coquiserver.Model)
	require.True(t, ok)
	assert.Equal(t, "tts_models/en/ljspeech/tacotron2-DDC", model.ServerModel())

	outputPath := filepath.Join(t.TempDir(), "out.wav")

	err = synth.Synthesize(context.Background(),
		core.Request{Text: "Hello world & more", OutputPath: outputPath},
		core.Options{Speaker: "p225", Language: "en"},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"text":        "Hello world & more",
		"speaker_id":  "p225",
		"language_id": "en",
	}, gotQuery)

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, wav, content)
}

func TestXTTSMode_Synthesize(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/studio_speakers": func(responseWriter http.ResponseWriter, _ *http.Request) {
			_, _ = responseWriter.Write([]byte(`{"Daisy Studious": {}}`))
		},
		"/tts_to_audio/": func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(request.Body).Decode(&gotBody))

			_, _ = responseWriter.Write([]byte("RIFF-audio"))
		},
	})

	engine, err := coquiserver.New(server.URL, coquiserver.WithAPIMode(coquiserver.APIModeXTTS))
	require.NoError(t, err)

	synth, err := engine.Load(context.Background(), "tts_models/multilingual/multi-dataset/xtts_v2")
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "out.wav")

	err = synth.Synthesize(context.Background(),
		core.Request{Text: "Hello world", OutputPath: outputPath},
		core.Options{Speaker: "Daisy Studious", Language: "en"},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"text":        "Hello world",
		"speaker_wav": "Daisy Studious",
		"language":    "en",
	}, gotBody)

	err = synth.Synthesize(context.Background(),
		core.Request{Text: "Hello world", OutputPath: outputPath},
		core.Options{},
	)
	require.ErrorIs(t, err, coquiserver.ErrSpeakerRequired)
}

func TestLoad_ServerDown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	engine, err := coquiserver.New(serverURL)
	require.NoError(t, err)

	_, err = engine.Load(context.Background(), "any")
	require.Error(t, err)
}

func TestSynthesize_ServerErrors(t *testing.T) {
	t.Parallel()

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/details": detailsHandler("tts_models/en/vctk/vits"),
		"/api/tts": func(responseWriter http.ResponseWriter, request *http.Request) {
			switch request.URL.Query().Get("text") {
			case "structured":
				responseWriter.WriteHeader(http.StatusBadRequest)
				_, _ = responseWriter.Write([]byte(`{"detail":"unknown speaker","error_code":"E_SPEAKER"}`))
			case "empty":
				responseWriter.WriteHeader(http.StatusOK)
			default:
				responseWriter.WriteHeader(http.StatusInternalServerError)
				_, _ = responseWriter.Write([]byte("Traceback: CUDA out of memory"))
			}
		},
	})

	engine, err := coquiserver.New(server.URL)
	require.NoError(t, err)

	synth, err := engine.Load(context.Background(), "tts_models/en/vctk/vits")
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "out.wav")

	err = synth.Synthesize(context.Background(), core.Request{Text: "structured", OutputPath: outputPath}, core.Options{})
	require.ErrorIs(t, err, coquiserver.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "unknown speaker")
	assert.Contains(t, err.Error(), "E_SPEAKER")

	err = synth.Synthesize(context.Background(), core.Request{Text: "raw", OutputPath: outputPath}, core.Options{})
	require.ErrorIs(t, err, coquiserver.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "CUDA out of memory")

	err = synth.Synthesize(context.Background(), core.Request{Text: "empty", OutputPath: outputPath}, core.Options{})
	require.ErrorIs(t, err, coquiserver.ErrEmptyAudio)

	err = synth.Synthesize(context.Background(), core.Request{Text: "", OutputPath: outputPath}, core.Options{})
	require.ErrorIs(t, err, core.ErrTextEmpty)
}

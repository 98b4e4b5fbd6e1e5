// Package coquiserver synthesizes speech through a running Coqui TTS HTTP
// server, either the standard server (`tts-server`) or the XTTS v2 API server.
package coquiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/book-expert/tts-cli/internal/core"
)

// Compile-time interface assertions.
var (
	_ core.Engine      = (*Engine)(nil)
	_ core.Synthesizer = (*Model)(nil)
)

// Name is the tag printed in front of progress messages.
const Name = "CoquiServer"

// API endpoints and paths.
const (
	apiTTS            = "/api/tts"
	apiDetails        = "/details"
	apiTTSToAudio     = "/tts_to_audio/"
	apiStudioSpeakers = "/studio_speakers"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// APIMode selects which Coqui server API the engine targets.
type APIMode string

const (
	// APIModeStandard targets GET /api/tts on the standard Coqui TTS server.
	APIModeStandard APIMode = "standard"
	// APIModeXTTS targets POST /tts_to_audio/ on the XTTS v2 API server.
	APIModeXTTS APIMode = "xtts"
)

const (
	filePermissions = 0o600
	maxErrorBody    = 4096
)

// Static errors.
var (
	ErrServerURLEmpty   = errors.New("coqui server URL cannot be empty")
	ErrSpeakerRequired  = errors.New("a speaker is required in xtts mode")
	ErrEmptyAudio       = errors.New("received empty audio data")
	ErrUnexpectedStatus = errors.New("coqui server returned non-OK status")
)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithAPIMode sets the server API mode. APIModeStandard is the default.
func WithAPIMode(mode APIMode) Option {
	return func(e *Engine) {
		e.apiMode = mode
	}
}

// WithTimeout sets the per-request HTTP timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// Engine talks to one Coqui TTS server. The server has its model loaded
// already; Load only checks that it answers.
type Engine struct {
	baseURL    string
	apiMode    APIMode
	httpClient *http.Client
}

// ttsRequest is the JSON body sent to POST /tts_to_audio/ (XTTS mode).
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// detailsResponse is the JSON body returned by GET /details (standard mode).
type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// errorResponse is the structured error some server builds return.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// New creates an Engine for the server at baseURL (e.g. "http://localhost:5002").
func New(baseURL string, opts ...Option) (*Engine, error) {
	if baseURL == "" {
		return nil, ErrServerURLEmpty
	}

	e := &Engine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: 0},
	}
	for _, o := range opts {
		o(e)
	}

	return e, nil
}

// Name implements core.Engine.
func (e *Engine) Name() string {
	return Name
}

// Load checks that the server is reachable. In standard mode the server
// reports its own model, which is returned by Model.ServerModel; the
// requested model name is only informational because the server decides.
func (e *Engine) Load(ctx context.Context, modelName string) (core.Synthesizer, error) {
	model := &Model{
		engine:      e,
		modelName:   modelName,
		serverModel: "",
	}

	switch e.apiMode {
	case APIModeXTTS:
		err := e.getJSON(ctx, apiStudioSpeakers, nil)
		if err != nil {
			return nil, err
		}
	default:
		var details detailsResponse

		err := e.getJSON(ctx, apiDetails, &details)
		if err != nil {
			return nil, err
		}

		model.serverModel = details.ModelName
	}

	return model, nil
}

func (e *Engine) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui server at %s unreachable: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(path, resp)
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(target)
	if err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

// Model is a handle on the server's loaded model.
type Model struct {
	engine      *Engine
	modelName   string
	serverModel string
}

// ServerModel returns the model the server reported, if any.
func (m *Model) ServerModel() string {
	return m.serverModel
}

// Synthesize sends one request and streams the returned audio to req.OutputPath.
func (m *Model) Synthesize(ctx context.Context, req core.Request, opts core.Options) error {
	if req.Text == "" {
		return core.ErrTextEmpty
	}

	if req.OutputPath == "" {
		return core.ErrOutputPathEmpty
	}

	httpReq, err := m.newRequest(ctx, req.Text, opts)
	if err != nil {
		return err
	}

	resp, err := m.engine.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to coqui server at %s: %w", m.engine.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(httpReq.URL.Path, resp)
	}

	return writeAudio(req.OutputPath, resp.Body)
}

func (m *Model) newRequest(ctx context.Context, text string, opts core.Options) (*http.Request, error) {
	if m.engine.apiMode == APIModeXTTS {
		if opts.Speaker == "" {
			return nil, ErrSpeakerRequired
		}

		body, err := json.Marshal(ttsRequest{
			Text:       text,
			SpeakerWav: opts.Speaker,
			Language:   opts.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			m.engine.baseURL+apiTTSToAudio, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set(headerContentType, contentTypeJSON)
		httpReq.Header.Set(headerAccept, contentTypeWAV)

		return httpReq, nil
	}

	params := url.Values{}
	params.Set("text", text)

	if opts.Speaker != "" {
		params.Set("speaker_id", opts.Speaker)
	}

	if opts.Language != "" {
		params.Set("language_id", opts.Language)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.engine.baseURL+apiTTS+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAccept, contentTypeWAV)

	return httpReq, nil
}

// writeAudio copies body into path. An empty body is an error; the empty
// file is left behind like any other partial output.
func writeAudio(path string, body io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()

	if copyErr != nil {
		return fmt.Errorf("failed to write audio file: %w", copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close audio file: %w", closeErr)
	}

	if written == 0 {
		return ErrEmptyAudio
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error when the server sends
// one and falls back to the raw body.
func parseErrorResponse(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var errorResp errorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf("%w: %s %s: %s (code: %s)",
			ErrUnexpectedStatus, path, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf("%w: %s %s, body: %s",
		ErrUnexpectedStatus, path, resp.Status, strings.TrimSpace(string(body)))
}

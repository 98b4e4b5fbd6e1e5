// Package worker provides a NATS worker that turns text objects into audio
// objects with a loaded synthesizer.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/text"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// HeaderError carries the failure reason on an error reply. Error replies
// have an empty body.
const HeaderError = "Tts-Error"

const (
	defaultJobTimeout = 2 * time.Minute
	audioKeyExt       = ".wav"
	workDirPattern    = "tts-worker-*"
	outputFileName    = "chunk.wav"
)

var (
	// ErrSubjectEmpty indicates that no request subject was configured.
	ErrSubjectEmpty = errors.New("request subject cannot be empty")
	// ErrNoSynthesizer indicates that the worker was created without a loaded model.
	ErrNoSynthesizer = errors.New("synthesizer cannot be nil")
)

// Option is a functional option for configuring a NatsWorker.
type Option func(*NatsWorker)

// WithNormalizer normalizes every downloaded text before synthesis.
func WithNormalizer(n *text.Normalizer) Option {
	return func(w *NatsWorker) {
		w.normalizer = n
	}
}

// WithJobTimeout bounds a single job. Non-positive values keep the default.
func WithJobTimeout(d time.Duration) Option {
	return func(w *NatsWorker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// NatsWorker answers synthesis requests on a NATS subject. Each request is a
// events.TextProcessedEvent; the reply is an events.AudioChunkCreatedEvent.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	texts          core.ObjectStore
	audio          core.ObjectStore
	synthesizer    core.Synthesizer
	voice          core.Options
	normalizer     *text.Normalizer
	jobTimeout     time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a worker. texts holds the input text objects and
// audio receives the generated files; they may be the same store.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	texts core.ObjectStore,
	audio core.ObjectStore,
	synthesizer core.Synthesizer,
	voice core.Options,
	log *logger.Logger,
	opts ...Option,
) (*NatsWorker, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	if synthesizer == nil {
		return nil, ErrNoSynthesizer
	}

	w := &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		texts:          texts,
		audio:          audio,
		synthesizer:    synthesizer,
		voice:          voice,
		normalizer:     nil,
		jobTimeout:     defaultJobTimeout,
		log:            log,
	}
	for _, o := range opts {
		o(w)
	}

	return w, nil
}

// Run subscribes and serves requests until ctx is cancelled, then drains the
// subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for synthesis requests on %s", w.subject)

	<-ctx.Done()

	err = sub.Drain()
	if err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal event: %v", err)
		w.respondError(msg, fmt.Errorf("failed to unmarshal event: %w", err))

		return
	}

	start := time.Now()

	audioKey, err := w.processJob(ctx, &event)
	if err != nil {
		w.log.Error("Failed to process job for workflow %s: %v", event.Header.WorkflowID, err)
		w.respondError(msg, err)

		return
	}

	w.log.Info("Workflow %s page %d/%d synthesized to %s in %s",
		event.Header.WorkflowID, event.PageNumber, event.TotalPages, audioKey, time.Since(start))

	reply := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.respond(msg, reply)
	if err != nil {
		w.log.Error("Failed to reply for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processJob downloads the text, synthesizes it into a scratch directory and
// uploads the result under a fresh key.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	data, err := w.texts.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text %q: %w", event.TextKey, err)
	}

	input := strings.TrimSpace(string(data))
	if w.normalizer != nil {
		input = w.normalizer.Normalize(input)
	}

	if input == "" {
		return "", fmt.Errorf("%w: %s", core.ErrTextEmpty, event.TextKey)
	}

	opts := w.voice
	if event.Voice != "" {
		opts.Speaker = event.Voice
	}

	workDir, err := os.MkdirTemp("", workDirPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			w.log.Warn("Failed to remove %s: %v", workDir, removeErr)
		}
	}()

	req := core.Request{Text: input, OutputPath: filepath.Join(workDir, outputFileName)}

	err = w.synthesizer.Synthesize(ctx, req, opts)
	if err != nil {
		return "", core.NewBackendError(core.OpSynthesize, "", err)
	}

	audioData, err := os.ReadFile(req.OutputPath)
	if err != nil || len(audioData) == 0 {
		return "", core.NewBackendError(core.OpVerify, "", fmt.Errorf("%w: %s", core.ErrOutputMissing, event.TextKey))
	}

	audioKey := uuid.NewString() + audioKeyExt

	err = w.audio.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio %q: %w", audioKey, err)
	}

	return audioKey, nil
}

func (w *NatsWorker) respond(msg *nats.Msg, reply *events.AudioChunkCreatedEvent) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(data)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) respondError(msg *nats.Msg, cause error) {
	if msg.Reply == "" {
		return
	}

	reply := nats.NewMsg(msg.Reply)
	reply.Header.Set(HeaderError, cause.Error())

	err := msg.RespondMsg(reply)
	if err != nil {
		w.log.Error("Failed to publish error reply: %v", err)
	}
}

package translator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/capture"
	"github.com/skypro1111/speech-translator/internal/exchange"
	"github.com/skypro1111/speech-translator/internal/metrics"
	"github.com/skypro1111/speech-translator/internal/payload"
	"github.com/skypro1111/speech-translator/internal/playback"
)

// Failure messages shown for the text operations
const (
	TextFailurePrefix      = "Text translation failed: "
	ReadAloudFailurePrefix = "Read aloud failed: "
)

// Options contains the collaborators of a Translator.
// Client.Languages is replaced by the translator's own swappable pair.
type Options struct {
	Device    capture.Device
	Session   capture.SessionConfig
	Decoders  *audio.Registry
	Client    exchange.Config
	Languages exchange.LanguagePair
	Display   exchange.Display
	Player    playback.Player
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Stats represents translator statistics
type Stats struct {
	RecordingsSubmitted  uint64    `json:"recordings_submitted"`
	TranslationsOK       uint64    `json:"translations_ok"`
	TranslationsFailed   uint64    `json:"translations_failed"`
	LastSubmittedAt      time.Time `json:"last_submitted_at,omitempty"`
	LastPayloadMimeType  string    `json:"last_payload_mime_type,omitempty"`
	LastPayloadSizeBytes int       `json:"last_payload_size_bytes,omitempty"`
}

// Status is a snapshot of the translator
type Status struct {
	State        string                `json:"state"`
	Recording    bool                  `json:"recording"`
	HasAudio     bool                  `json:"has_translated_audio"`
	Languages    exchange.LanguagePair `json:"languages"`
	LastResult   *exchange.Result      `json:"last_result,omitempty"`
	LastError    string                `json:"last_error,omitempty"`
	Stats        Stats                 `json:"stats"`
	ClientStats  exchange.ClientStats  `json:"client_stats"`
	Unavailable  bool                  `json:"capture_unavailable"`
	CaptureError string                `json:"capture_error,omitempty"`
}

// Translator owns one capture session and the exchange fed by it
type Translator struct {
	session  *capture.Session
	preparer *payload.Preparer
	exchange *exchange.Exchange
	client   *exchange.Client
	display  exchange.Display
	player   playback.Player
	logger   *slog.Logger
	metrics  *metrics.Metrics

	languages  exchange.LanguagePair
	stats      Stats
	captureErr error

	mu sync.RWMutex
}

// New creates a translator. The capture device is not opened until Open.
func New(opts Options) *Translator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Display == nil {
		opts.Display = exchange.Displays{}
	}
	if opts.Player == nil {
		opts.Player = playback.Nop{}
	}
	if opts.Languages.Source == "" {
		opts.Languages.Source = exchange.DefaultSourceLanguage
	}
	if opts.Languages.Target == "" {
		opts.Languages.Target = exchange.DefaultTargetLanguage
	}

	t := &Translator{
		preparer:  payload.NewPreparer(opts.Decoders, opts.Logger, opts.Metrics),
		display:   opts.Display,
		player:    opts.Player,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		languages: opts.Languages,
	}

	clientConfig := opts.Client
	clientConfig.Languages = t.Languages
	t.client = exchange.NewClient(clientConfig)
	t.exchange = exchange.NewExchange(t.client, opts.Display, opts.Player, opts.Logger, opts.Metrics)
	t.session = capture.NewSession(opts.Device, opts.Session, t.handleBlob, opts.Logger, opts.Metrics)

	return t
}

// Open acquires the capture device. A failure leaves the translator unable to record.
func (t *Translator) Open(ctx context.Context) error {
	err := t.session.Open(ctx)
	if err != nil {
		t.mu.Lock()
		t.captureErr = err
		t.mu.Unlock()
	}
	return err
}

// StartOrStopRecording toggles the recording and returns the resulting state
func (t *Translator) StartOrStopRecording(ctx context.Context) (capture.State, error) {
	state, err := t.session.Toggle()
	if err != nil {
		if errors.Is(err, capture.ErrCaptureUnavailable) {
			t.logger.Error("Recording unavailable", slog.String("error", err.Error()))
		}
		return state, err
	}
	return state, nil
}

// PlayLastTranslatedAudio replays the latest translated audio.
// It reports false when no audio is available.
func (t *Translator) PlayLastTranslatedAudio(ctx context.Context) bool {
	return t.exchange.PlayLast(ctx)
}

// Languages returns the active language pair
func (t *Translator) Languages() exchange.LanguagePair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.languages
}

// SwapLanguages exchanges source and target and returns the new pair.
// A recording already in flight keeps the pair it was sent with.
func (t *Translator) SwapLanguages() exchange.LanguagePair {
	t.mu.Lock()
	t.languages.Source, t.languages.Target = t.languages.Target, t.languages.Source
	langs := t.languages
	t.mu.Unlock()

	t.logger.Info("Languages swapped",
		slog.String("source", langs.Source),
		slog.String("target", langs.Target),
	)
	return langs
}

// TranslateText translates typed text and shows the translation
func (t *Translator) TranslateText(ctx context.Context, text string) (string, error) {
	result, err := t.client.TranslateText(ctx, text)
	if err != nil {
		t.textFailure("translate_text", TextFailurePrefix, err)
		return "", err
	}

	t.metrics.RecordTextRequest("translate_text", "success")
	t.display.ShowTranslation(result.Translation)
	return result.Translation, nil
}

// ReadAloud synthesizes text and plays it. It reports whether audio was returned.
func (t *Translator) ReadAloud(ctx context.Context, text string) (bool, error) {
	result, err := t.client.ReadAloud(ctx, text)
	if err != nil {
		t.textFailure("read_aloud", ReadAloudFailurePrefix, err)
		return false, err
	}

	t.metrics.RecordTextRequest("read_aloud", "success")
	if !result.HasAudio() {
		t.logger.Warn("Read aloud returned no audio")
		return false, nil
	}

	playback.BestEffort(ctx, t.player, playback.DataURI(audio.WAVMimeType, result.AudioBase64), "read_aloud", t.logger, t.metrics)
	return true, nil
}

// textFailure logs and shows a failed text request. Blank input is only returned.
func (t *Translator) textFailure(operation, prefix string, err error) {
	if errors.Is(err, exchange.ErrEmptyText) {
		return
	}

	t.metrics.RecordTextRequest(operation, exchange.ErrorType(err))
	t.logger.Error("Text request failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	t.display.ShowFailure(prefix + err.Error())
}

// State returns the recording state
func (t *Translator) State() capture.State {
	return t.session.State()
}

// WaitIdle blocks until the current recording is finalized
func (t *Translator) WaitIdle(ctx context.Context) error {
	return t.session.WaitIdle(ctx)
}

// Status returns a snapshot for the control API
func (t *Translator) Status() Status {
	state := t.session.State()
	last, lastErr := t.exchange.Last()

	t.mu.RLock()
	stats := t.stats
	captureErr := t.captureErr
	t.mu.RUnlock()

	status := Status{
		State:       state.String(),
		Recording:   state == capture.StateRecording,
		HasAudio:    t.exchange.HasAudio(),
		Languages:   t.Languages(),
		LastResult:  last,
		Stats:       stats,
		ClientStats: t.client.GetStats(),
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	if captureErr != nil {
		status.Unavailable = true
		status.CaptureError = captureErr.Error()
	}
	return status
}

// Close stops recording, waits for pending exchanges and releases the device
func (t *Translator) Close(ctx context.Context) error {
	return t.session.Close(ctx)
}

// handleBlob prepares and submits one finalized recording
func (t *Translator) handleBlob(ctx context.Context, blob audio.Blob) {
	p := t.preparer.Prepare(ctx, blob)

	t.mu.Lock()
	t.stats.RecordingsSubmitted++
	t.stats.LastSubmittedAt = time.Now()
	t.stats.LastPayloadMimeType = p.MimeType()
	t.stats.LastPayloadSizeBytes = len(p.Base64())
	t.mu.Unlock()

	_, err := t.exchange.Submit(ctx, p)

	t.mu.Lock()
	if err != nil {
		t.stats.TranslationsFailed++
	} else {
		t.stats.TranslationsOK++
	}
	t.mu.Unlock()
}

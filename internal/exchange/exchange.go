package exchange

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/metrics"
	"github.com/skypro1111/speech-translator/internal/payload"
	"github.com/skypro1111/speech-translator/internal/playback"
)

// FailurePrefix starts every failure message shown in the translation slot
const FailurePrefix = "Speech translation failed: "

// Display renders exchange results
type Display interface {
	ShowTranscript(text string)
	ShowTranslation(text string)
	// ShowFailure replaces the translation with a failure message
	ShowFailure(message string)
}

// Displays fans results out to several displays
type Displays []Display

// ShowTranscript implements Display
func (d Displays) ShowTranscript(text string) {
	for _, display := range d {
		display.ShowTranscript(text)
	}
}

// ShowTranslation implements Display
func (d Displays) ShowTranslation(text string) {
	for _, display := range d {
		display.ShowTranslation(text)
	}
}

// ShowFailure implements Display
func (d Displays) ShowFailure(message string) {
	for _, display := range d {
		display.ShowFailure(message)
	}
}

// ConsoleDisplay prints results as text lines
type ConsoleDisplay struct {
	w  io.Writer
	mu sync.Mutex
}

// NewConsoleDisplay creates a display writing to w
func NewConsoleDisplay(w io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{w: w}
}

// ShowTranscript implements Display
func (c *ConsoleDisplay) ShowTranscript(text string) {
	c.println("Transcript:  ", text)
}

// ShowTranslation implements Display
func (c *ConsoleDisplay) ShowTranslation(text string) {
	c.println("Translation: ", text)
}

// ShowFailure implements Display
func (c *ConsoleDisplay) ShowFailure(message string) {
	c.println("Translation: ", message)
}

func (c *ConsoleDisplay) println(label, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s%s\n", label, text)
}

// Translator is the backend capability used by Exchange. *Client satisfies it.
type Translator interface {
	Translate(ctx context.Context, p payload.EncodedPayload) (*Result, error)
}

// Exchange submits payloads, renders the outcome and keeps the latest translated audio
type Exchange struct {
	translator Translator
	display    Display
	player     playback.Player
	logger     *slog.Logger
	metrics    *metrics.Metrics

	last      *Result
	lastAudio string
	lastError error

	mu sync.RWMutex
}

// NewExchange creates an exchange. A nil display or player discards output.
func NewExchange(translator Translator, display Display, player playback.Player, logger *slog.Logger, m *metrics.Metrics) *Exchange {
	if display == nil {
		display = Displays{}
	}
	if player == nil {
		player = playback.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchange{
		translator: translator,
		display:    display,
		player:     player,
		logger:     logger,
		metrics:    m,
	}
}

// Submit sends one payload and renders the result. Failures are shown, not returned to the session.
func (e *Exchange) Submit(ctx context.Context, p payload.EncodedPayload) (*Result, error) {
	e.mu.Lock()
	e.lastAudio = ""
	e.mu.Unlock()

	startTime := time.Now()
	e.metrics.RecordExchangeRequest()

	result, err := e.translator.Translate(ctx, p)
	duration := time.Since(startTime)

	if err != nil {
		e.metrics.RecordExchangeFailure(ErrorType(err), duration.Seconds())
		e.logger.Error("Speech translation failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)

		e.mu.Lock()
		e.last = nil
		e.lastError = err
		e.mu.Unlock()

		e.display.ShowFailure(FailurePrefix + err.Error())
		return nil, err
	}

	e.metrics.RecordExchangeSuccess(duration.Seconds())
	e.logger.Info("Speech translated",
		slog.Int("transcript_length", len(result.Transcript)),
		slog.Int("translation_length", len(result.TranslatedText)),
		slog.Bool("has_audio", result.HasAudio()),
		slog.Duration("duration", duration),
	)

	e.mu.Lock()
	e.last = result
	e.lastAudio = result.TranslatedAudioBase64
	e.lastError = nil
	e.mu.Unlock()

	e.display.ShowTranscript(result.Transcript)
	e.display.ShowTranslation(result.TranslatedText)

	if result.HasAudio() {
		playback.BestEffort(ctx, e.player, playback.DataURI(audio.WAVMimeType, result.TranslatedAudioBase64),
			"translation", e.logger, e.metrics)
	}

	return result, nil
}

// PlayLast replays the latest translated audio. It reports false when there is none.
func (e *Exchange) PlayLast(ctx context.Context) bool {
	e.mu.RLock()
	b64 := e.lastAudio
	e.mu.RUnlock()

	if b64 == "" {
		return false
	}

	playback.BestEffort(ctx, e.player, playback.DataURI(audio.WAVMimeType, b64), "replay", e.logger, e.metrics)
	return true
}

// Last returns the latest successful result and the error of the latest call, if it failed
func (e *Exchange) Last() (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.lastError
}

// HasAudio reports whether translated audio is available for replay
func (e *Exchange) HasAudio() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastAudio != ""
}

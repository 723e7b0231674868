package payload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/metrics"
)

// Fallback reasons reported to metrics and logs
const (
	ReasonUnsupported = "unsupported_format"
	ReasonDecode      = "decode_error"
	ReasonEncode      = "encode_error"
	ReasonPanic       = "panic"
)

// EncodedPayload is the audio sent to the translator
type EncodedPayload struct {
	base64   string
	mimeType string
}

// New creates a payload from a base64 string and its MIME type
func New(b64, mimeType string) EncodedPayload {
	return EncodedPayload{base64: b64, mimeType: mimeType}
}

// Base64 returns the standard base64 encoding of the audio
func (p EncodedPayload) Base64() string { return p.base64 }

// MimeType returns the MIME type of the decoded Base64 bytes
func (p EncodedPayload) MimeType() string { return p.mimeType }

// Preparer converts blobs into payloads
type Preparer struct {
	decoders *audio.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewPreparer creates a preparer. A nil registry uses audio.DefaultRegistry.
func NewPreparer(decoders *audio.Registry, logger *slog.Logger, m *metrics.Metrics) *Preparer {
	if decoders == nil {
		decoders = audio.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{decoders: decoders, logger: logger, metrics: m}
}

// Prepare encodes blob as WAV, or returns the original bytes when that is not possible.
// It never fails.
func (p *Preparer) Prepare(ctx context.Context, blob audio.Blob) EncodedPayload {
	wav, reason, err := p.toWAV(blob)
	if err == nil {
		p.metrics.RecordPayloadEncoded(len(wav))
		p.logger.Debug("Payload encoded as WAV",
			slog.String("source_mime_type", blob.MimeType),
			slog.Int("source_bytes", blob.Size()),
			slog.Int("wav_bytes", len(wav)),
		)
		return New(base64.StdEncoding.EncodeToString(wav), audio.WAVMimeType)
	}

	p.metrics.RecordPayloadFallback(reason, blob.Size())

	level := slog.LevelWarn
	if reason == ReasonUnsupported {
		level = slog.LevelDebug
	}
	p.logger.Log(ctx, level, "WAV conversion failed, sending original audio",
		slog.String("reason", reason),
		slog.String("mime_type", blob.MimeType),
		slog.String("error", err.Error()),
	)

	return New(base64.StdEncoding.EncodeToString(blob.Data), blob.MimeType)
}

// toWAV runs the decode and encode steps, reporting the failure reason on error
func (p *Preparer) toWAV(blob audio.Blob) (wav []byte, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			wav = nil
			reason = ReasonPanic
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	d, err := p.decoders.Lookup(blob.MimeType)
	if err != nil {
		return nil, ReasonUnsupported, err
	}

	dc, err := d.NewContext()
	if err != nil {
		return nil, ReasonDecode, fmt.Errorf("failed to create decode context: %w", err)
	}
	defer dc.Close()

	buf, err := dc.Decode(blob.Data, blob.MimeType)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			return nil, ReasonUnsupported, err
		}
		return nil, ReasonDecode, fmt.Errorf("failed to decode %s: %w", blob.MimeType, err)
	}

	wav, err = audio.EncodeWAV(buf)
	if err != nil {
		return nil, ReasonEncode, fmt.Errorf("failed to encode WAV: %w", err)
	}

	return wav, "", nil
}

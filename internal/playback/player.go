package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skypro1111/speech-translator/internal/metrics"
)

// ErrInvalidDataURI is returned for strings that are not base64 data URIs
var ErrInvalidDataURI = errors.New("invalid data URI")

// Player requests playback of a clip
type Player interface {
	Play(ctx context.Context, uri string) error
}

// PlayerFunc adapts a function into a Player
type PlayerFunc func(ctx context.Context, uri string) error

// Play implements Player
func (f PlayerFunc) Play(ctx context.Context, uri string) error {
	return f(ctx, uri)
}

// Nop discards every clip
type Nop struct{}

// Play implements Player
func (Nop) Play(context.Context, string) error { return nil }

// DataURI builds a data URI from a MIME type and base64 payload
func DataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing comma", ErrInvalidDataURI)
	}

	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}

	return mimeType, data, nil
}

// BestEffort plays a clip and swallows any failure.
// source labels the failure metric, e.g. "translation" or "monitor".
func BestEffort(ctx context.Context, p Player, uri string, source string, logger *slog.Logger, m *metrics.Metrics) {
	if p == nil || uri == "" {
		return
	}

	if err := p.Play(ctx, uri); err != nil {
		m.RecordPlaybackFailure(source)
		if logger != nil {
			logger.Debug("Playback failed",
				slog.String("source", source),
				slog.String("error", err.Error()),
			)
		}
	}
}

package playback

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/speech-translator/internal/metrics"
)

func TestDataURIRoundTrip(t *testing.T) {
	uri := DataURI("audio/wav", "UklGRg==")
	if uri != "data:audio/wav;base64,UklGRg==" {
		t.Fatalf("Unexpected data URI: %s", uri)
	}

	mimeType, data, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}

	if mimeType != "audio/wav" {
		t.Errorf("Expected mime type audio/wav, got %s", mimeType)
	}

	if !bytes.Equal(data, []byte("RIFF")) {
		t.Errorf("Expected RIFF, got %q", data)
	}
}

func TestParseDataURIWithParameters(t *testing.T) {
	mimeType, _, err := ParseDataURI("data:audio/pcm;rate=16000;channels=1;base64,AAA=")
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}

	if mimeType != "audio/pcm;rate=16000;channels=1" {
		t.Errorf("Expected parameters to be kept, got %s", mimeType)
	}
}

func TestParseDataURIErrors(t *testing.T) {
	tests := []string{
		"",
		"http://example.com/a.wav",
		"data:audio/wav;base64",
		"data:audio/wav,plain",
		"data:audio/wav;base64,!!!",
	}

	for _, uri := range tests {
		if _, _, err := ParseDataURI(uri); !errors.Is(err, ErrInvalidDataURI) {
			t.Errorf("ParseDataURI(%q): expected ErrInvalidDataURI, got %v", uri, err)
		}
	}
}

func TestBestEffortSwallowsFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	calls := 0
	failing := PlayerFunc(func(context.Context, string) error {
		calls++
		return errors.New("autoplay blocked")
	})

	BestEffort(context.Background(), failing, DataURI("audio/wav", ""), "translation", logger, m)

	if calls != 1 {
		t.Errorf("Expected 1 play call, got %d", calls)
	}

	// Empty URIs and nil players are skipped
	BestEffort(context.Background(), failing, "", "translation", logger, m)
	BestEffort(context.Background(), nil, "data:audio/wav;base64,", "translation", logger, m)

	if calls != 1 {
		t.Errorf("Expected skipped calls to not reach the player, got %d calls", calls)
	}
}

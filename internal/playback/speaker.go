package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/hostaudio"
)

const speakerFramesPerBuffer = 1024

// Speaker plays clips on the default PortAudio output device.
// Clips are played one at a time; a new clip waits for the current one.
type Speaker struct {
	decoders *audio.Registry
	logger   *slog.Logger

	mu sync.Mutex
}

// NewSpeaker creates a speaker that decodes clips with the given registry
func NewSpeaker(decoders *audio.Registry, logger *slog.Logger) *Speaker {
	if decoders == nil {
		decoders = audio.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		decoders: decoders,
		logger:   logger,
	}
}

// Play decodes the data URI and writes it to the output device
func (s *Speaker) Play(ctx context.Context, uri string) error {
	mimeType, data, err := ParseDataURI(uri)
	if err != nil {
		return err
	}

	buf, err := s.decoders.Decode(data, mimeType)
	if err != nil {
		return fmt.Errorf("failed to decode clip: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(ctx, buf)
}

// write streams an interleaved copy of buf to a fresh output stream
func (s *Speaker) write(ctx context.Context, buf *audio.PCMBuffer) error {
	if err := hostaudio.Acquire(); err != nil {
		return err
	}
	defer hostaudio.ReleaseLogged(s.logger, "speaker")

	channels := buf.NumChannels()
	samples := buf.Interleave()
	out := make([]int16, speakerFramesPerBuffer*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.SampleRate), speakerFramesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	s.logger.Debug("Playing clip",
		slog.Int("sample_rate", buf.SampleRate),
		slog.Int("channels", channels),
		slog.Duration("duration", buf.Duration()),
	)

	for offset := 0; offset < len(samples); offset += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(out, samples[offset:])
		// Pad the final period with silence
		for i := n; i < len(out); i++ {
			out[i] = 0
		}

		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}

	return nil
}

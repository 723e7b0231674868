package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/hostaudio"
)

// MicrophoneConfig contains microphone capture parameters
type MicrophoneConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	Logger          *slog.Logger
}

// MicrophoneDevice captures s16le PCM from the default PortAudio input device
type MicrophoneDevice struct {
	config MicrophoneConfig
	opened bool
	mu     sync.Mutex
}

// NewMicrophoneDevice creates a microphone device; nothing is acquired until Open
func NewMicrophoneDevice(config MicrophoneConfig) *MicrophoneDevice {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.FramesPerBuffer <= 0 {
		config.FramesPerBuffer = 1024
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &MicrophoneDevice{config: config}
}

// Open initializes PortAudio and checks that a default input device exists
func (m *MicrophoneDevice) Open(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened {
		return audio.PCMType(m.config.SampleRate, m.config.Channels), nil
	}

	if err := hostaudio.Acquire(); err != nil {
		return "", err
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		hostaudio.ReleaseLogged(m.config.Logger, "microphone")
		return "", fmt.Errorf("no default input device: %w", err)
	}

	if dev.MaxInputChannels < m.config.Channels {
		hostaudio.ReleaseLogged(m.config.Logger, "microphone")
		return "", fmt.Errorf("input device %q supports %d channels, %d requested",
			dev.Name, dev.MaxInputChannels, m.config.Channels)
	}

	m.opened = true
	return audio.PCMType(m.config.SampleRate, m.config.Channels), nil
}

// Record reads one buffer at a time until ctx is cancelled.
// The buffer being read when the stop arrives is still delivered.
func (m *MicrophoneDevice) Record(ctx context.Context, chunks chan<- Chunk) error {
	m.mu.Lock()
	opened := m.opened
	m.mu.Unlock()

	if !opened {
		return ErrNotOpen
	}

	buf := make([]int16, m.config.FramesPerBuffer*m.config.Channels)
	stream, err := portaudio.OpenDefaultStream(m.config.Channels, 0, float64(m.config.SampleRate), m.config.FramesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	defer stream.Stop()

	mimeType := audio.PCMType(m.config.SampleRate, m.config.Channels)

	for ctx.Err() == nil {
		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("failed to read input stream: %w", err)
		}

		data := make([]byte, len(buf)*2)
		for i, v := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		}

		chunks <- Chunk{Data: data, MimeType: mimeType}
	}

	return nil
}

// Close releases the PortAudio host
func (m *MicrophoneDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return nil
	}
	m.opened = false
	return hostaudio.Release()
}

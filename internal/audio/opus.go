package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"
)

// opusOutputRate is the rate libopusfile always decodes to
const opusOutputRate = 48000

const opusReadFrames = 5760 // 120 ms at 48 kHz, the largest Opus packet

// OpusDecoder decodes Ogg-encapsulated Opus clips through libopusfile
type OpusDecoder struct{}

// NewOpusDecoder creates a new Ogg/Opus decoder
func NewOpusDecoder() *OpusDecoder {
	return &OpusDecoder{}
}

// NewContext implements Decoder
func (d *OpusDecoder) NewContext() (DecodeContext, error) {
	return &opusContext{}, nil
}

// opusContext owns the libopusfile stream for one clip
type opusContext struct {
	stream *opus.Stream
}

// Decode reads the whole Ogg/Opus stream into a 48 kHz PCM buffer
func (c *opusContext) Decode(data []byte, _ string) (*PCMBuffer, error) {
	if c.stream != nil {
		return nil, fmt.Errorf("opus decode context already used")
	}

	channels, err := opusChannelCount(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	c.stream = stream

	frame := make([]float32, opusReadFrames*channels)
	out := make([][]float32, channels)

	for {
		n, err := stream.ReadFloat32(frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode opus stream: %w", err)
		}

		// n is samples per channel, frame is interleaved
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				out[ch] = append(out[ch], frame[i*channels+ch])
			}
		}
	}

	if len(out[0]) == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	return &PCMBuffer{SampleRate: opusOutputRate, Channels: out}, nil
}

// Close releases the libopusfile stream
func (c *opusContext) Close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}

// opusChannelCount reads the channel count from the OpusHead identification header
func opusChannelCount(data []byte) (int, error) {
	if len(data) < 4 || string(data[0:4]) != "OggS" {
		return 0, fmt.Errorf("invalid Ogg stream: missing OggS capture pattern")
	}

	idx := bytes.Index(data, []byte("OpusHead"))
	if idx < 0 || idx+10 > len(data) {
		return 0, fmt.Errorf("invalid Ogg stream: missing OpusHead")
	}

	channels := int(data[idx+9])
	if channels < 1 || channels > 2 {
		return 0, fmt.Errorf("unsupported opus channel count: %d", channels)
	}
	return channels, nil
}

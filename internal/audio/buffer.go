package audio

import (
	"fmt"
	"math"
	"time"
)

// Blob is an opaque audio byte sequence tagged with its MIME type
type Blob struct {
	Data     []byte
	MimeType string
}

// Size returns the blob length in bytes
func (b Blob) Size() int {
	return len(b.Data)
}

// PCMBuffer holds decoded linear audio, one float slice per channel.
// Samples are nominally in [-1.0, 1.0] and every channel has the same length.
type PCMBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewPCMBuffer allocates a silent buffer with the given shape
func NewPCMBuffer(sampleRate, channels, frames int) *PCMBuffer {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}
	return &PCMBuffer{SampleRate: sampleRate, Channels: data}
}

// NumChannels returns the channel count
func (b *PCMBuffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of sample frames (samples per channel)
func (b *PCMBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration of the buffer
func (b *PCMBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// MaxWAVChannels is the largest channel count whose block align fits the header
const MaxWAVChannels = math.MaxInt16

// Validate checks the buffer shape and that it fits a 16-bit WAV container
func (b *PCMBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("pcm buffer is nil")
	}

	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}

	if len(b.Channels) == 0 {
		return fmt.Errorf("pcm buffer has no channels")
	}

	if len(b.Channels) > MaxWAVChannels {
		return fmt.Errorf("too many channels: %d (max %d)", len(b.Channels), MaxWAVChannels)
	}

	frames := len(b.Channels[0])
	for c, data := range b.Channels {
		if len(data) != frames {
			return fmt.Errorf("channel %d has %d frames, expected %d", c, len(data), frames)
		}
	}

	dataSize := uint64(frames) * uint64(len(b.Channels)) * 2
	if dataSize > math.MaxUint32-(WAVHeaderSize-8) {
		return fmt.Errorf("pcm data too large for wav: %d bytes", dataSize)
	}

	return nil
}

// Interleave returns the samples as interleaved int16 values, frame by frame
func (b *PCMBuffer) Interleave() []int16 {
	channels := b.NumChannels()
	frames := b.Frames()
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = QuantizeSample(b.Channels[c][i])
		}
	}
	return out
}

// QuantizeSample clamps a float sample to [-1, 1] and converts it to int16.
// Negative values scale by 32768 and non-negative values by 32767, so +1.0 maps
// to 32767 and -1.0 to -32768. NaN maps to 0.
func QuantizeSample(sample float32) int16 {
	s := float64(sample)
	if s != s { // NaN
		return 0
	}

	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}

	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// sampleFromInt16 converts an int16 sample back to float using the same asymmetric scale
func sampleFromInt16(v int16) float32 {
	if v < 0 {
		return float32(v) / 32768
	}
	return float32(v) / 32767
}

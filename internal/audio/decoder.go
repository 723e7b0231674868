package audio

import (
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned when no decoder is registered for a MIME type
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCMMimeType is the base MIME type of raw interleaved s16le audio
const PCMMimeType = "audio/pcm"

// Decoder creates decoding contexts for one family of audio formats
type Decoder interface {
	// NewContext acquires a decoding context. Callers must Close it.
	NewContext() (DecodeContext, error)
}

// DecodeContext decodes a complete encoded clip into linear PCM
type DecodeContext interface {
	// Decode converts the encoded bytes into a PCM buffer.
	// mimeType is the full type including parameters.
	Decode(data []byte, mimeType string) (*PCMBuffer, error)

	// Close releases any resources held by the context
	Close() error
}

// DecoderFunc adapts a stateless decode function into a Decoder
type DecoderFunc func(data []byte, mimeType string) (*PCMBuffer, error)

// NewContext implements Decoder
func (f DecoderFunc) NewContext() (DecodeContext, error) {
	return funcContext{decode: f}, nil
}

type funcContext struct {
	decode DecoderFunc
}

func (c funcContext) Decode(data []byte, mimeType string) (*PCMBuffer, error) {
	return c.decode(data, mimeType)
}

func (c funcContext) Close() error { return nil }

// Registry maps MIME base types to decoders
type Registry struct {
	decoders map[string]Decoder
	mu       sync.RWMutex
}

// NewRegistry creates an empty decoder registry
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with the WAV, raw PCM and Ogg/Opus decoders
func DefaultRegistry() *Registry {
	r := NewRegistry()
	wav := DecoderFunc(decodeWAVClip)
	r.Register("audio/wav", wav)
	r.Register("audio/x-wav", wav)
	r.Register("audio/wave", wav)
	r.Register(PCMMimeType, DecoderFunc(DecodePCM))
	opus := NewOpusDecoder()
	r.Register("audio/ogg", opus)
	r.Register("audio/opus", opus)
	return r
}

// Register associates a decoder with a MIME base type
func (r *Registry) Register(mimeType string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[BaseMimeType(mimeType)] = d
}

// Lookup finds the decoder for a MIME type, ignoring parameters and case
func (r *Registry) Lookup(mimeType string) (Decoder, error) {
	base := BaseMimeType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decoders[base]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	return d, nil
}

// Decode looks up a decoder, decodes the clip and releases the context
func (r *Registry) Decode(data []byte, mimeType string) (*PCMBuffer, error) {
	d, err := r.Lookup(mimeType)
	if err != nil {
		return nil, err
	}

	ctx, err := d.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create decode context: %w", err)
	}
	defer ctx.Close()

	return ctx.Decode(data, mimeType)
}

// BaseMimeType strips parameters from a MIME type and lowercases it
func BaseMimeType(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		// Fall back to a manual split for sloppy values
		base = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	return strings.ToLower(base)
}

// PCMType formats the MIME type for raw s16le audio with the given shape
func PCMType(sampleRate, channels int) string {
	return mime.FormatMediaType(PCMMimeType, map[string]string{
		"rate":     strconv.Itoa(sampleRate),
		"channels": strconv.Itoa(channels),
	})
}

func decodeWAVClip(data []byte, _ string) (*PCMBuffer, error) {
	return DecodeWAV(data)
}

// DecodePCM decodes raw interleaved s16le audio described by an audio/pcm MIME type
func DecodePCM(data []byte, mimeType string) (*PCMBuffer, error) {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("invalid PCM mime type %q: %w", mimeType, err)
	}

	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid PCM rate parameter in %q", mimeType)
	}

	channels := 1
	if v, ok := params["channels"]; ok {
		channels, err = strconv.Atoi(v)
		if err != nil || channels <= 0 {
			return nil, fmt.Errorf("invalid PCM channels parameter in %q", mimeType)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	if len(data)%(channels*bytesPerSample) != 0 {
		return nil, fmt.Errorf("PCM data length %d is not a multiple of the frame size %d", len(data), channels*bytesPerSample)
	}

	return decodeInterleavedS16LE(data, rate, channels), nil
}

package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// WAVHeaderSize is the size of the canonical PCM WAV header
	WAVHeaderSize = 44

	// WAVMimeType is the MIME type of the encoded container
	WAVMimeType = "audio/wav"

	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	formatPCM      = 1
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// newWAVHeader builds the canonical 16-bit PCM header for the given shape
func newWAVHeader(sampleRate, channels, frames int) WAVHeader {
	blockAlign := uint16(channels * bytesPerSample)
	dataSize := uint32(frames) * uint32(blockAlign)

	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// put writes the header into the first 44 bytes of dst
func (h WAVHeader) put(dst []byte) {
	le := binary.LittleEndian
	copy(dst[0:4], h.ChunkID[:])
	le.PutUint32(dst[4:8], h.ChunkSize)
	copy(dst[8:12], h.Format[:])
	copy(dst[12:16], h.Subchunk1ID[:])
	le.PutUint32(dst[16:20], h.Subchunk1Size)
	le.PutUint16(dst[20:22], h.AudioFormat)
	le.PutUint16(dst[22:24], h.NumChannels)
	le.PutUint32(dst[24:28], h.SampleRate)
	le.PutUint32(dst[28:32], h.ByteRate)
	le.PutUint16(dst[32:34], h.BlockAlign)
	le.PutUint16(dst[34:36], h.BitsPerSample)
	copy(dst[36:40], h.Subchunk2ID[:])
	le.PutUint32(dst[40:44], h.Subchunk2Size)
}

// EncodeWAV encodes a decoded buffer into a 16-bit PCM WAV container.
// The output is exactly 44 + frames*channels*2 bytes and is deterministic for a given buffer.
func EncodeWAV(buf *PCMBuffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("cannot encode WAV: %w", err)
	}

	channels := buf.NumChannels()
	frames := buf.Frames()
	header := newWAVHeader(buf.SampleRate, channels, frames)

	out := make([]byte, WAVHeaderSize+int(header.Subchunk2Size))
	header.put(out)

	// Interleave frame by frame, channel by channel
	offset := WAVHeaderSize
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(out[offset:], uint16(QuantizeSample(buf.Channels[c][i])))
			offset += bytesPerSample
		}
	}

	return out, nil
}

// wavLayout describes where the format fields and sample data live in a WAV file
type wavLayout struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
	dataOffset    int
	dataSize      int
}

// parseWAV walks the RIFF chunks and locates the fmt and data chunks
func parseWAV(data []byte) (*wavLayout, error) {
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", WAVHeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	layout := &wavLayout{dataOffset: -1}
	haveFmt := false

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("invalid WAV file: truncated fmt chunk")
			}
			layout.audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			layout.numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			layout.sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			layout.bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			// Streaming writers may leave a bogus size, clamp to what we have
			if body+size > len(data) || size < 0 {
				size = len(data) - body
			}
			layout.dataOffset = body
			layout.dataSize = size
		}

		if layout.dataOffset >= 0 && haveFmt {
			return layout, nil
		}

		// Chunks are padded to an even size
		next := body + size + size%2
		if next <= offset {
			break
		}
		offset = next
	}

	if !haveFmt {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	return nil, fmt.Errorf("invalid WAV file: missing data chunk")
}

// DecodeWAV decodes 16-bit PCM WAV data into a PCM buffer of any channel count
func DecodeWAV(data []byte) (*PCMBuffer, error) {
	layout, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	if layout.audioFormat != formatPCM {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", layout.audioFormat)
	}

	if layout.bitsPerSample != bitsPerSample {
		return nil, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", layout.bitsPerSample)
	}

	if layout.numChannels == 0 {
		return nil, fmt.Errorf("invalid channel count: 0")
	}

	if layout.sampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	pcm := data[layout.dataOffset : layout.dataOffset+layout.dataSize]
	return decodeInterleavedS16LE(pcm, int(layout.sampleRate), int(layout.numChannels)), nil
}

// decodeInterleavedS16LE splits interleaved little-endian int16 samples into channels.
// A trailing partial frame is dropped.
func decodeInterleavedS16LE(pcm []byte, sampleRate, channels int) *PCMBuffer {
	blockAlign := channels * bytesPerSample
	frames := len(pcm) / blockAlign

	buf := NewPCMBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := i*blockAlign + c*bytesPerSample
			buf.Channels[c][i] = sampleFromInt16(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
	}
	return buf
}

// ValidateWAV validates a WAV file format without decoding the entire audio data
func ValidateWAV(data []byte) error {
	_, err := parseWAV(data)
	return err
}

// GetWAVDuration calculates the duration of a WAV file in seconds
func GetWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// WAVInfo contains basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumFrames     uint32  `json:"num_frames"`
}

// GetWAVInfo extracts metadata from a WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	layout, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	if layout.sampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	blockAlign := uint32(layout.numChannels) * uint32(layout.bitsPerSample) / 8
	if blockAlign == 0 {
		return nil, fmt.Errorf("invalid block alignment: %d channels, %d bits", layout.numChannels, layout.bitsPerSample)
	}

	numFrames := uint32(layout.dataSize) / blockAlign

	return &WAVInfo{
		SampleRate:    layout.sampleRate,
		Channels:      layout.numChannels,
		BitsPerSample: layout.bitsPerSample,
		Duration:      float64(numFrames) / float64(layout.sampleRate),
		DataSize:      uint32(layout.dataSize),
		NumFrames:     numFrames,
	}, nil
}

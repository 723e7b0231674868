package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// sineBuffer generates a mono sine wave at half amplitude
func sineBuffer(sampleRate int, duration, frequency float64) *PCMBuffer {
	numFrames := int(float64(sampleRate) * duration)
	buf := NewPCMBuffer(sampleRate, 1, numFrames)
	for i := 0; i < numFrames; i++ {
		t := float64(i) / float64(sampleRate)
		buf.Channels[0][i] = float32(0.5 * math.Sin(2*math.Pi*frequency*t))
	}
	return buf
}

func TestEncodeWAV(t *testing.T) {
	// 440Hz sine wave for 0.1 seconds at 8kHz
	sampleRate := 8000
	buf := sineBuffer(sampleRate, 0.1, 440)

	wavData, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + buf.Frames()*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if err := ValidateWAV(wavData); err != nil {
		t.Errorf("Generated WAV is invalid: %v", err)
	}

	info, err := GetWAVInfo(wavData)
	if err != nil {
		t.Fatalf("Failed to get WAV info: %v", err)
	}

	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}

	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}

	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}

	expectedDuration := float64(buf.Frames()) / float64(sampleRate)
	if math.Abs(info.Duration-expectedDuration) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", expectedDuration, info.Duration)
	}
}

func TestEncodeWAVHeaderFields(t *testing.T) {
	buf := NewPCMBuffer(16000, 1, 4)

	wavData, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	le := binary.LittleEndian
	checks := []struct {
		name     string
		got      uint32
		expected uint32
	}{
		{"chunk size", le.Uint32(wavData[4:8]), 36 + 8},
		{"fmt size", le.Uint32(wavData[16:20]), 16},
		{"audio format", uint32(le.Uint16(wavData[20:22])), 1},
		{"channels", uint32(le.Uint16(wavData[22:24])), 1},
		{"sample rate", le.Uint32(wavData[24:28]), 16000},
		{"byte rate", le.Uint32(wavData[28:32]), 32000},
		{"block align", uint32(le.Uint16(wavData[32:34])), 2},
		{"bits per sample", uint32(le.Uint16(wavData[34:36])), 16},
		{"data size", le.Uint32(wavData[40:44]), 8},
	}

	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("%s: expected %d, got %d", c.name, c.expected, c.got)
		}
	}

	for offset, tag := range map[int]string{0: "RIFF", 8: "WAVE", 12: "fmt ", 36: "data"} {
		if string(wavData[offset:offset+4]) != tag {
			t.Errorf("Expected tag %q at offset %d, got %q", tag, offset, wavData[offset:offset+4])
		}
	}
}

func TestEncodeWAVDeterministic(t *testing.T) {
	buf := NewPCMBuffer(22050, 2, 257)
	for c := range buf.Channels {
		for i := range buf.Channels[c] {
			buf.Channels[c][i] = float32(math.Sin(float64(i*(c+1)) / 7))
		}
	}

	first, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := EncodeWAV(buf)
		if err != nil {
			t.Fatalf("EncodeWAV failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("EncodeWAV output differs on call %d", i+2)
		}
	}

	if len(first) != 44+257*2*2 {
		t.Errorf("Expected %d bytes, got %d", 44+257*2*2, len(first))
	}
}

func TestEncodeWAVClamping(t *testing.T) {
	buf := NewPCMBuffer(8000, 1, 6)
	copy(buf.Channels[0], []float32{1.5, 1.0, -2.0, -1.0, 0, float32(math.NaN())})

	wavData, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	sample := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(wavData[44+i*2:]))
	}

	expected := []int16{32767, 32767, -32768, -32768, 0, 0}
	for i, want := range expected {
		if got := sample(i); got != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestQuantizeSample(t *testing.T) {
	tests := []struct {
		in       float32
		expected int16
	}{
		{0, 0},
		{0.5, 16383},
		{-0.5, -16384},
		{1, 32767},
		{-1, -32768},
		{float32(math.Inf(1)), 32767},
		{float32(math.Inf(-1)), -32768},
		{float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		if got := QuantizeSample(tt.in); got != tt.expected {
			t.Errorf("QuantizeSample(%v): expected %d, got %d", tt.in, tt.expected, got)
		}
	}
}

func TestEncodeWAVOneSecondSilence(t *testing.T) {
	buf := NewPCMBuffer(16000, 1, 16000)

	wavData, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wavData) != 44+32000 {
		t.Fatalf("Expected %d bytes, got %d", 44+32000, len(wavData))
	}

	for i, b := range wavData[44:] {
		if b != 0 {
			t.Fatalf("Expected zero data byte at %d, got %d", i, b)
		}
	}
}

func TestEncodeWAVEmptyFrames(t *testing.T) {
	wavData, err := EncodeWAV(NewPCMBuffer(8000, 2, 0))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wavData) != 44 {
		t.Errorf("Expected 44 bytes, got %d", len(wavData))
	}
}

func TestEncodeWAVInvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  *PCMBuffer
	}{
		{"nil buffer", nil},
		{"zero sample rate", &PCMBuffer{SampleRate: 0, Channels: [][]float32{{0}}}},
		{"negative sample rate", &PCMBuffer{SampleRate: -1000, Channels: [][]float32{{0}}}},
		{"no channels", &PCMBuffer{SampleRate: 8000}},
		{"ragged channels", &PCMBuffer{SampleRate: 8000, Channels: [][]float32{{0, 0}, {0}}}},
		{"block align overflow", NewPCMBuffer(8000, 40000, 1)},
		{"data size overflow", sharedChannelBuffer(8000, MaxWAVChannels, 65600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.buf); err == nil {
				t.Error("Expected error for invalid buffer")
			}
		})
	}
}

func TestEncodeWAVMaxChannels(t *testing.T) {
	buf := NewPCMBuffer(8000, MaxWAVChannels, 1)

	wavData, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	info, err := GetWAVInfo(wavData)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}

	if info.Channels != MaxWAVChannels {
		t.Errorf("Expected %d channels, got %d", MaxWAVChannels, info.Channels)
	}
}

// sharedChannelBuffer builds a large buffer whose channels alias one slice
func sharedChannelBuffer(sampleRate, channels, frames int) *PCMBuffer {
	data := make([]float32, frames)
	buf := &PCMBuffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = data
	}
	return buf
}

func TestDecodeWAV(t *testing.T) {
	original := NewPCMBuffer(8000, 2, 5)
	copy(original.Channels[0], []float32{0.1, -0.2, 0.3, -0.4, 0.5})
	copy(original.Channels[1], []float32{-1, 1, 0, 0.25, -0.25})

	wavData, err := EncodeWAV(original)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if decoded.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", decoded.SampleRate)
	}

	if decoded.NumChannels() != 2 {
		t.Fatalf("Expected 2 channels, got %d", decoded.NumChannels())
	}

	if decoded.Frames() != 5 {
		t.Fatalf("Expected 5 frames, got %d", decoded.Frames())
	}

	for c := range original.Channels {
		for i, want := range original.Channels[c] {
			if got := decoded.Channels[c][i]; math.Abs(float64(got-want)) > 1.0/32767 {
				t.Errorf("Channel %d frame %d: expected %.5f, got %.5f", c, i, want, got)
			}
		}
	}
}

func TestDecodeWAVSkipsExtraChunks(t *testing.T) {
	wavData, err := EncodeWAV(NewPCMBuffer(16000, 1, 3))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// Insert a LIST chunk with an odd size between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	withList := append([]byte{}, wavData[:36]...)
	withList = append(withList, list...)
	withList = append(withList, wavData[36:]...)

	decoded, err := DecodeWAV(withList)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if decoded.Frames() != 3 {
		t.Errorf("Expected 3 frames, got %d", decoded.Frames())
	}
}

func TestValidateWAV(t *testing.T) {
	// Too short data
	if err := ValidateWAV([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for too short WAV data")
	}

	// Invalid header
	invalidWAV := make([]byte, 50)
	copy(invalidWAV[0:4], []byte("FAKE"))
	if err := ValidateWAV(invalidWAV); err == nil {
		t.Error("Expected error for invalid RIFF header")
	}
}

func TestDecodeWAVUnsupportedDepth(t *testing.T) {
	wavData, err := EncodeWAV(NewPCMBuffer(8000, 1, 2))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	binary.LittleEndian.PutUint16(wavData[34:36], 24)

	if _, err := DecodeWAV(wavData); err == nil {
		t.Error("Expected error for 24-bit WAV")
	}
}

func TestGetWAVDuration(t *testing.T) {
	// 1 second of stereo audio at 8kHz
	wavData, err := EncodeWAV(NewPCMBuffer(8000, 2, 8000))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := GetWAVDuration(wavData)
	if err != nil {
		t.Fatalf("GetWAVDuration failed: %v", err)
	}

	if math.Abs(duration-1.0) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", 1.0, duration)
	}
}

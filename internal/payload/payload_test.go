package payload

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/metrics"
)

// trackingDecoder counts contexts and lets tests script the decode outcome
type trackingDecoder struct {
	decode func(data []byte, mimeType string) (*audio.PCMBuffer, error)
	opened int
	closed int
}

func (d *trackingDecoder) NewContext() (audio.DecodeContext, error) {
	d.opened++
	return &trackingContext{d: d}, nil
}

type trackingContext struct {
	d *trackingDecoder
}

func (c *trackingContext) Decode(data []byte, mimeType string) (*audio.PCMBuffer, error) {
	return c.d.decode(data, mimeType)
}

func (c *trackingContext) Close() error {
	c.d.closed++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestPreparer(reg *audio.Registry) *Preparer {
	return NewPreparer(reg, testLogger(), metrics.NewMetrics(prometheus.NewRegistry()))
}

func sineBuffer() *audio.PCMBuffer {
	buf := audio.NewPCMBuffer(16000, 1, 4)
	copy(buf.Channels[0], []float32{0, 0.5, -0.5, 1})
	return buf
}

func TestPrepareEncodesWAV(t *testing.T) {
	dec := &trackingDecoder{decode: func([]byte, string) (*audio.PCMBuffer, error) {
		return sineBuffer(), nil
	}}
	reg := audio.NewRegistry()
	reg.Register("audio/ogg", dec)

	p := newTestPreparer(reg)
	payload := p.Prepare(context.Background(), audio.Blob{Data: []byte("ogg bytes"), MimeType: "audio/ogg; codecs=opus"})

	if payload.MimeType() != audio.WAVMimeType {
		t.Errorf("Expected MIME type %s, got %s", audio.WAVMimeType, payload.MimeType())
	}

	wav, err := base64.StdEncoding.DecodeString(payload.Base64())
	if err != nil {
		t.Fatalf("Payload is not valid base64: %v", err)
	}

	expected, _ := audio.EncodeWAV(sineBuffer())
	if string(wav) != string(expected) {
		t.Error("Expected payload to be the WAV encoding of the decoded buffer")
	}

	if dec.opened != 1 || dec.closed != 1 {
		t.Errorf("Expected one context opened and closed, got opened=%d closed=%d", dec.opened, dec.closed)
	}
}

func TestPrepareWAVInput(t *testing.T) {
	src, err := audio.EncodeWAV(sineBuffer())
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	p := newTestPreparer(nil)
	payload := p.Prepare(context.Background(), audio.Blob{Data: src, MimeType: "audio/wav"})

	if payload.MimeType() != audio.WAVMimeType {
		t.Errorf("Expected MIME type %s, got %s", audio.WAVMimeType, payload.MimeType())
	}
	wav, err := base64.StdEncoding.DecodeString(payload.Base64())
	if err != nil {
		t.Fatalf("Payload is not valid base64: %v", err)
	}

	buf, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("Payload is not a valid WAV: %v", err)
	}
	if buf.SampleRate != 16000 || buf.NumChannels() != 1 || buf.Frames() != 4 {
		t.Errorf("Expected 16000 Hz mono with 4 frames, got %d Hz %d channels %d frames",
			buf.SampleRate, buf.NumChannels(), buf.Frames())
	}
}

func TestPrepareFallback(t *testing.T) {
	original := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01}

	tests := []struct {
		name     string
		mimeType string
		decode   func([]byte, string) (*audio.PCMBuffer, error)
	}{
		{
			name:     "unsupported type",
			mimeType: "audio/webm",
		},
		{
			name:     "decode error",
			mimeType: "audio/ogg",
			decode: func([]byte, string) (*audio.PCMBuffer, error) {
				return nil, errors.New("corrupt stream")
			},
		},
		{
			name:     "encode error",
			mimeType: "audio/ogg",
			decode: func([]byte, string) (*audio.PCMBuffer, error) {
				return &audio.PCMBuffer{SampleRate: 0}, nil
			},
		},
		{
			name:     "decoder panic",
			mimeType: "audio/ogg",
			decode: func([]byte, string) (*audio.PCMBuffer, error) {
				panic("boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := audio.NewRegistry()
			dec := &trackingDecoder{decode: tt.decode}
			if tt.decode != nil {
				reg.Register(tt.mimeType, dec)
			}

			p := newTestPreparer(reg)
			payload := p.Prepare(context.Background(), audio.Blob{Data: original, MimeType: tt.mimeType})

			if payload.MimeType() != tt.mimeType {
				t.Errorf("Expected original MIME type %s, got %s", tt.mimeType, payload.MimeType())
			}
			if payload.Base64() != base64.StdEncoding.EncodeToString(original) {
				t.Errorf("Expected base64 of original bytes, got %s", payload.Base64())
			}
			if dec.opened != dec.closed {
				t.Errorf("Expected every context closed, opened=%d closed=%d", dec.opened, dec.closed)
			}
		})
	}
}

func TestPrepareNilMetrics(t *testing.T) {
	p := NewPreparer(audio.NewRegistry(), nil, nil)

	payload := p.Prepare(context.Background(), audio.Blob{Data: []byte{1, 2, 3}, MimeType: "audio/webm"})
	if payload.Base64() != "AQID" {
		t.Errorf("Expected AQID, got %s", payload.Base64())
	}
}

func TestNew(t *testing.T) {
	p := New("UklGRg==", "audio/wav")
	if p.Base64() != "UklGRg==" || p.MimeType() != "audio/wav" {
		t.Errorf("Unexpected payload: %q %q", p.Base64(), p.MimeType())
	}
}

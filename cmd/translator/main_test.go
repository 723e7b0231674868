package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/skypro1111/speech-translator/internal/capture"
	"github.com/skypro1111/speech-translator/internal/exchange"
)

// scriptedConsole records the operations triggered by console lines
type scriptedConsole struct {
	calls     []string
	languages exchange.LanguagePair
}

func (c *scriptedConsole) StartOrStopRecording(ctx context.Context) (capture.State, error) {
	c.calls = append(c.calls, "toggle")
	return capture.StateRecording, nil
}

func (c *scriptedConsole) PlayLastTranslatedAudio(ctx context.Context) bool {
	c.calls = append(c.calls, "replay")
	return false
}

func (c *scriptedConsole) SwapLanguages() exchange.LanguagePair {
	c.calls = append(c.calls, "swap")
	c.languages.Source, c.languages.Target = c.languages.Target, c.languages.Source
	return c.languages
}

func (c *scriptedConsole) TranslateText(ctx context.Context, text string) (string, error) {
	c.calls = append(c.calls, "translate:"+text)
	if text == "" {
		return "", exchange.ErrEmptyText
	}
	return "ok", nil
}

func (c *scriptedConsole) ReadAloud(ctx context.Context, text string) (bool, error) {
	c.calls = append(c.calls, "read:"+text)
	if text == "" {
		return false, exchange.ErrEmptyText
	}
	return false, nil
}

func TestReadKeys(t *testing.T) {
	input := strings.Join([]string{
		"",
		"p",
		"s",
		"t good morning",
		"A  salam  ",
		"t",
		"x",
		"q",
		"r",
	}, "\n")

	c := &scriptedConsole{languages: exchange.LanguagePair{Source: "en", Target: "ary"}}
	var out bytes.Buffer
	quitCalled := false
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	readKeys(context.Background(), strings.NewReader(input), &out, c, func() { quitCalled = true }, logger)

	expected := []string{"toggle", "replay", "swap", "translate:good morning", "read:salam", "translate:"}
	if len(c.calls) != len(expected) {
		t.Fatalf("Expected calls %v, got %v", expected, c.calls)
	}
	for i := range expected {
		if c.calls[i] != expected[i] {
			t.Errorf("Call %d: expected %q, got %q", i, expected[i], c.calls[i])
		}
	}

	if !quitCalled {
		t.Error("Expected q to quit")
	}

	text := out.String()
	for _, want := range []string{
		"Recording state: recording",
		"No translated audio yet",
		"Languages: ary -> en",
		"No audio received",
		"Usage: t <text>",
		"Unknown command",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got %q", want, text)
		}
	}
}

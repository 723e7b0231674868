package hostaudio

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// fakeHost replaces the PortAudio entry points for one test
func fakeHost(t *testing.T, terminateErr error) (inits, terms *int) {
	t.Helper()
	inits, terms = new(int), new(int)

	origInit, origTerm := initialize, terminate
	initialize = func() error {
		*inits++
		return nil
	}
	terminate = func() error {
		*terms++
		return terminateErr
	}
	t.Cleanup(func() {
		initialize, terminate = origInit, origTerm
		refs = 0
	})
	return inits, terms
}

func TestAcquireReleaseRefCount(t *testing.T) {
	inits, terms := fakeHost(t, nil)

	for i := 0; i < 2; i++ {
		if err := Acquire(); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
	}
	if *inits != 1 {
		t.Errorf("Expected 1 initialize, got %d", *inits)
	}

	if err := Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if *terms != 0 {
		t.Errorf("Expected host kept alive for the second user, got %d terminates", *terms)
	}

	if err := Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if *terms != 1 {
		t.Errorf("Expected 1 terminate, got %d", *terms)
	}

	// Unpaired release is a no-op
	if err := Release(); err != nil {
		t.Errorf("Expected nil for unpaired release, got %v", err)
	}
	if *terms != 1 {
		t.Errorf("Expected no extra terminate, got %d", *terms)
	}
}

func TestReleaseLoggedReportsFailure(t *testing.T) {
	fakeHost(t, errors.New("device busy"))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	ReleaseLogged(logger, "speaker")

	out := logs.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "device busy") {
		t.Errorf("Expected debug log with the release error, got %q", out)
	}
	if !strings.Contains(out, "owner=speaker") {
		t.Errorf("Expected owner attribute, got %q", out)
	}
}

func TestReleaseLoggedQuietOnSuccess(t *testing.T) {
	fakeHost(t, nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	ReleaseLogged(logger, "microphone")

	if logs.Len() != 0 {
		t.Errorf("Expected no log output, got %q", logs.String())
	}
}

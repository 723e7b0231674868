// Package hostaudio manages the process-wide PortAudio host shared by the
// microphone and speaker devices.
package hostaudio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	mu   sync.Mutex
	refs int

	// Swapped in tests
	initialize = portaudio.Initialize
	terminate  = portaudio.Terminate
)

// Acquire initializes PortAudio on first use. Each successful call must be paired with Release.
func Acquire() error {
	mu.Lock()
	defer mu.Unlock()

	if refs == 0 {
		if err := initialize(); err != nil {
			return fmt.Errorf("failed to initialize portaudio: %w", err)
		}
	}
	refs++
	return nil
}

// Release terminates PortAudio once the last user is gone
func Release() error {
	mu.Lock()
	defer mu.Unlock()

	if refs == 0 {
		return nil
	}
	refs--
	if refs == 0 {
		if err := terminate(); err != nil {
			return fmt.Errorf("failed to terminate portaudio: %w", err)
		}
	}
	return nil
}

// ReleaseLogged calls Release for callers with no error path left, logging a failure at debug level
func ReleaseLogged(logger *slog.Logger, owner string) {
	if err := Release(); err != nil {
		logger.Debug("Audio host release failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	}
}

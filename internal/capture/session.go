package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/metrics"
	"github.com/skypro1111/speech-translator/internal/playback"
)

// State is the recording state of a Session
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BlobHandler receives the finalized recording of one session
type BlobHandler func(ctx context.Context, blob audio.Blob)

// SessionConfig contains capture session configuration
type SessionConfig struct {
	QueueSize       int             // Capacity of the chunk queue
	DefaultMimeType string          // Used when neither the device nor any chunk reports a type
	Monitor         playback.Player // Optional local playback of the raw recording
	OnStateChange   func(State)     // Called after every transition, outside the session lock
}

// Session manages device acquisition and the recording state machine
type Session struct {
	device  Device
	config  SessionConfig
	handler BlobHandler
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Recording state
	state       State
	opened      bool
	unavailable error
	mimeType    string // negotiated type, overridden by any chunk that reports one
	chunks      []Chunk
	stop        context.CancelFunc
	startedAt   time.Time
	done        chan struct{} // closed when the current recording is finalized

	// Handler lifecycle
	baseCtx    context.Context
	baseCancel context.CancelFunc
	handlers   sync.WaitGroup

	mu sync.Mutex
}

// NewSession creates a capture session bound to a device.
// handler is invoked on its own goroutine for every finalized recording.
func NewSession(device Device, config SessionConfig, handler BlobHandler, logger *slog.Logger, m *metrics.Metrics) *Session {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.DefaultMimeType == "" {
		config.DefaultMimeType = "audio/webm"
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		device:     device,
		config:     config,
		handler:    handler,
		logger:     logger,
		metrics:    m,
		state:      StateIdle,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Open requests access to the capture device.
// On failure the session stays unusable and every later Start reports ErrCaptureUnavailable.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable != nil {
		return s.unavailable
	}

	if s.opened {
		return nil
	}

	mimeType, err := s.device.Open(ctx)
	if err != nil {
		s.unavailable = fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
		s.metrics.RecordCaptureFailure()
		s.logger.Error("Capture device unavailable", slog.String("error", err.Error()))
		return s.unavailable
	}

	s.opened = true
	s.mimeType = mimeType
	s.logger.Info("Capture device opened", slog.String("mime_type", mimeType))

	return nil
}

// State returns the current recording state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a recording. It reports false without error when a recording is already live.
func (s *Session) Start() (bool, error) {
	s.mu.Lock()

	if s.unavailable != nil {
		s.mu.Unlock()
		return false, s.unavailable
	}

	if !s.opened {
		s.mu.Unlock()
		return false, ErrNotOpen
	}

	if s.state != StateIdle {
		s.mu.Unlock()
		return false, nil
	}

	recCtx, cancel := context.WithCancel(s.baseCtx)
	chunks := make(chan Chunk, s.config.QueueSize)
	done := make(chan struct{})

	s.state = StateRecording
	s.stop = cancel
	s.startedAt = time.Now()
	s.done = done
	s.chunks = nil

	go s.record(recCtx, chunks, done)
	s.mu.Unlock()

	s.metrics.RecordRecordingStarted()
	s.logger.Info("Recording started")
	s.notify(StateRecording)

	return true, nil
}

// Stop requests the end of the live recording. It reports false when nothing is recording.
// Finalization completes asynchronously once the device flushes its last chunk.
func (s *Session) Stop() bool {
	s.mu.Lock()

	if s.state != StateRecording {
		s.mu.Unlock()
		return false
	}

	s.state = StateStopping
	stop := s.stop
	s.mu.Unlock()

	s.logger.Info("Recording stop requested")
	s.notify(StateStopping)

	// Cancel after notifying so listeners see Stopping before Idle
	stop()

	return true
}

// Toggle starts recording when idle and stops it when recording.
// Calls made while stopping are ignored. The returned state reflects the transition.
func (s *Session) Toggle() (State, error) {
	switch s.State() {
	case StateIdle:
		if _, err := s.Start(); err != nil {
			return StateIdle, err
		}
	case StateRecording:
		s.Stop()
	}
	return s.State(), nil
}

// WaitIdle blocks until the current recording, if any, has been finalized
func (s *Session) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any recording, waits for pending handlers and releases the device.
// Handlers still running when ctx expires are cancelled.
func (s *Session) Close(ctx context.Context) error {
	s.Stop()
	waitErr := s.WaitIdle(ctx)

	finished := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		s.logger.Warn("Cancelling pending translation handlers")
	}
	s.baseCancel()

	s.mu.Lock()
	opened := s.opened
	s.opened = false
	s.mu.Unlock()

	if opened {
		if err := s.device.Close(); err != nil {
			return fmt.Errorf("failed to close capture device: %w", err)
		}
	}

	return waitErr
}

// record runs the device producer and consumes its chunks until the device returns
func (s *Session) record(ctx context.Context, chunks chan Chunk, done chan struct{}) {
	defer close(done)

	recordErr := make(chan error, 1)
	go func() {
		err := s.device.Record(ctx, chunks)
		close(chunks)
		recordErr <- err
	}()

	for chunk := range chunks {
		s.appendChunk(chunk)
	}

	s.finalize(<-recordErr)
}

// appendChunk adds one delivered chunk to the live recording
func (s *Session) appendChunk(chunk Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.MimeType != "" {
		s.mimeType = chunk.MimeType
	}
	s.chunks = append(s.chunks, chunk)
}

// finalize flushes the chunks into a blob, returns the session to Idle and dispatches the blob
func (s *Session) finalize(recordErr error) {
	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	mimeType := s.blobMimeType(chunks)
	duration := time.Since(s.startedAt)
	s.state = StateIdle
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.mu.Unlock()

	s.notify(StateIdle)

	if recordErr != nil && !errors.Is(recordErr, context.Canceled) {
		s.metrics.RecordCaptureFailure()
		s.logger.Warn("Capture device reported an error",
			slog.String("error", recordErr.Error()),
			slog.Int("chunks", len(chunks)),
		)
	}

	var data bytes.Buffer
	for _, c := range chunks {
		data.Write(c.Data)
	}

	if data.Len() == 0 {
		s.metrics.RecordRecordingDropped()
		s.logger.Warn("Recording produced no audio, nothing to send",
			slog.Duration("duration", duration),
		)
		return
	}

	blob := audio.Blob{Data: data.Bytes(), MimeType: mimeType}

	s.metrics.RecordRecordingFinished(duration.Seconds(), blob.Size())
	s.logger.Info("Recording finalized",
		slog.String("mime_type", mimeType),
		slog.Int("chunks", len(chunks)),
		slog.Int("size_bytes", blob.Size()),
		slog.Duration("duration", duration),
	)

	s.dispatch(blob)
}

// notify reports a transition to the configured listener
func (s *Session) notify(state State) {
	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
}

// blobMimeType picks the last observed type, then the first chunk's, then the default.
// Must be called with s.mu held.
func (s *Session) blobMimeType(chunks []Chunk) string {
	if s.mimeType != "" {
		return s.mimeType
	}
	if len(chunks) > 0 && chunks[0].MimeType != "" {
		return chunks[0].MimeType
	}
	return s.config.DefaultMimeType
}

// dispatch hands the blob to the monitor and the handler without blocking the state machine
func (s *Session) dispatch(blob audio.Blob) {
	if s.config.Monitor != nil {
		uri := playback.DataURI(blob.MimeType, base64.StdEncoding.EncodeToString(blob.Data))
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			playback.BestEffort(s.baseCtx, s.config.Monitor, uri, "monitor", s.logger, s.metrics)
		}()
	}

	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()

		if s.handler != nil {
			s.handler(s.baseCtx, blob)
		}
	}()
}

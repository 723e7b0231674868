package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/speech-translator/internal/capture"
	"github.com/skypro1111/speech-translator/internal/config"
	"github.com/skypro1111/speech-translator/internal/exchange"
	"github.com/skypro1111/speech-translator/internal/metrics"
	"github.com/skypro1111/speech-translator/internal/translator"
)

// Controller is the translator surface driven by the API. *translator.Translator satisfies it.
type Controller interface {
	StartOrStopRecording(ctx context.Context) (capture.State, error)
	PlayLastTranslatedAudio(ctx context.Context) bool
	SwapLanguages() exchange.LanguagePair
	TranslateText(ctx context.Context, text string) (string, error)
	ReadAloud(ctx context.Context, text string) (bool, error)
	Status() translator.Status
}

// maxTextBody bounds the JSON body of the text endpoints
const maxTextBody = 64 << 10

// TextRequest is the JSON body of the text endpoints
type TextRequest struct {
	Text string `json:"text"`
}

// HTTPServer provides the local control API
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller Controller
	events     *EventHub
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer

	// Server state
	startTime time.Time
}

// NewHTTPServer creates a new control API server. A nil gatherer serves the default registry.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	controller Controller, events *EventHub, m *metrics.Metrics, gatherer prometheus.Gatherer) *HTTPServer {

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		events:     events,
		metrics:    m,
		gatherer:   gatherer,
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the route multiplexer
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))

	// Controls
	mux.HandleFunc("/recording/toggle", h.withMetrics("/recording/toggle", h.handleToggle))
	mux.HandleFunc("/playback/last", h.withMetrics("/playback/last", h.handlePlayLast))
	mux.HandleFunc("/languages/swap", h.withMetrics("/languages/swap", h.handleSwapLanguages))
	mux.HandleFunc("/text/translate", h.withMetrics("/text/translate", h.handleTranslateText))
	mux.HandleFunc("/text/read-aloud", h.withMetrics("/text/read-aloud", h.handleReadAloud))

	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Display events; the hijacked connection bypasses withMetrics
	if h.events != nil {
		mux.Handle("/events", h.events)
	}

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting control API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping control API server...")

	if h.events != nil {
		h.events.Close()
	}
	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.controller.Status()

	captureStatus := "ready"
	if status.Unavailable {
		captureStatus = "unavailable"
	}

	subscribers := 0
	if h.events != nil {
		subscribers = h.events.SubscriberCount()
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "speech-translator",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture": map[string]interface{}{
				"status": captureStatus,
				"state":  status.State,
				"error":  status.CaptureError,
			},
			"backend": map[string]interface{}{
				"total_requests": status.ClientStats.TotalRequests,
				"success_rate":   status.ClientStats.SuccessRate,
				"last_error":     status.ClientStats.LastError,
			},
			"events": map[string]interface{}{
				"subscribers": subscribers,
			},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleStatus implements the /status endpoint
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.controller.Status())
}

// handleToggle implements the /recording/toggle endpoint
func (h *HTTPServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := h.controller.StartOrStopRecording(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, capture.ErrCaptureUnavailable):
			status = http.StatusServiceUnavailable
		case errors.Is(err, capture.ErrNotOpen):
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]interface{}{
			"error": err.Error(),
			"state": state.String(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":     state.String(),
		"recording": state == capture.StateRecording,
	})
}

// handlePlayLast implements the /playback/last endpoint
func (h *HTTPServer) handlePlayLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	played := h.controller.PlayLastTranslatedAudio(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"played": played,
	})
}

// handleSwapLanguages implements the /languages/swap endpoint
func (h *HTTPServer) handleSwapLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.controller.SwapLanguages())
}

// handleTranslateText implements the /text/translate endpoint
func (h *HTTPServer) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	translation, err := h.controller.TranslateText(r.Context(), text)
	if err != nil {
		writeTextError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"translation": translation,
	})
}

// handleReadAloud implements the /text/read-aloud endpoint
func (h *HTTPServer) handleReadAloud(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	played, err := h.controller.ReadAloud(r.Context(), text)
	if err != nil {
		writeTextError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"played": played,
	})
}

// readText decodes a POSTed TextRequest, answering the request itself on failure
func (h *HTTPServer) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	var req TextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return "", false
	}
	return req.Text, true
}

// writeTextError maps a text operation error to a status code
func writeTextError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrEmptyText):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrTransport):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"backend": map[string]interface{}{
			"base_url": h.config.Backend.BaseURLTrimmed(),
			"username": h.config.Backend.Username,
			"voice":    h.config.Backend.Voice,
			"timeout":  h.config.Backend.Timeout,
			// Note: password is intentionally omitted for security
		},
		"languages": map[string]interface{}{
			"source": h.config.Languages.Source,
			"target": h.config.Languages.Target,
		},
		"capture": map[string]interface{}{
			"device":            h.config.Capture.Device,
			"input_file":        h.config.Capture.InputFile,
			"sample_rate":       h.config.Capture.SampleRate,
			"channels":          h.config.Capture.Channels,
			"frames_per_buffer": h.config.Capture.FramesPerBuffer,
			"queue_size":        h.config.Capture.QueueSize,
			"default_mime_type": h.config.Capture.DefaultMimeType,
		},
		"playback": map[string]interface{}{
			"enabled": h.config.Playback.Enabled,
			"monitor": h.config.Playback.Monitor,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Speech Translator Client",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                  "API documentation",
			"GET /health":            "Service health check",
			"GET /status":            "Recording state, last result and statistics",
			"POST /recording/toggle": "Start or stop recording",
			"POST /playback/last":    "Replay the last translated audio",
			"POST /languages/swap":   "Swap source and target languages",
			"POST /text/translate":   "Translate typed text",
			"POST /text/read-aloud":  "Synthesize and play typed text",
			"GET /config":            "Get client configuration",
			"GET /events":            "WebSocket stream of display events",
			"GET /metrics":           "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}

// Command mockbackend is a local stand-in for the translator backend.
// It accepts the same requests as the real service and answers with canned results.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/config"
	"github.com/skypro1111/speech-translator/internal/exchange"
)

const apiPrefix = "/api/translator"

// backend serves the mock translator API
type backend struct {
	username string
	password string
	fail     bool
	delay    time.Duration
	logger   *slog.Logger
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/ping", b.withAuth(b.handlePing))
	mux.HandleFunc(apiPrefix+"/speech/translate", b.withAuth(b.handleTranslate))
	mux.HandleFunc(apiPrefix+"/translate", b.withAuth(b.handleTranslateText))
	mux.HandleFunc(apiPrefix+"/read-aloud", b.withAuth(b.handleReadAloud))
	return mux
}

// withAuth enforces HTTP Basic credentials when they are configured
func (b *backend) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != b.username || pass != b.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="translator"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (b *backend) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "pong")
}

func (b *backend) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exchange.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.AudioBase64 == "" {
		http.Error(w, "audioBase64 is required", http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		http.Error(w, "audioBase64 is not valid base64", http.StatusBadRequest)
		return
	}

	b.logger.Info("Translate request received",
		slog.String("request_id", r.Header.Get("X-Request-ID")),
		slog.String("mime_type", req.AudioMimeType),
		slog.Int("audio_bytes", len(data)),
		slog.String("source_language", req.SourceLanguage),
		slog.String("target_language", req.TargetLanguage),
		slog.String("voice", req.Voice),
	)

	// Simulate processing time
	time.Sleep(b.delay)

	if b.fail {
		http.Error(w, "Speech translation error: simulated backend failure", http.StatusInternalServerError)
		return
	}

	description := fmt.Sprintf("%d bytes of %s", len(data), req.AudioMimeType)
	reply := data
	if info, err := audio.GetWAVInfo(data); err == nil {
		description = fmt.Sprintf("%.2fs of %d Hz audio", info.Duration, info.SampleRate)
	} else {
		// Non-WAV input gets a short synthesized tone as the spoken reply
		reply, err = toneWAV(16000, 440, 500*time.Millisecond)
		if err != nil {
			http.Error(w, "Speech translation error: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	result := exchange.Result{
		Transcript:            fmt.Sprintf("[%s] mock transcript of %s", req.SourceLanguage, description),
		TranslatedText:        fmt.Sprintf("[%s] mock translation of %s", req.TargetLanguage, description),
		TranslatedAudioBase64: base64.StdEncoding.EncodeToString(reply),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)

	b.logger.Info("Translate response sent", slog.String("transcript", result.Transcript))
}

func (b *backend) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exchange.TextTranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// Errors travel in the translation field, as the real service does
	if strings.TrimSpace(req.Text) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(exchange.TextTranslation{Translation: "Error: 'text' is required"})
		return
	}

	b.logger.Info("Text translate request received",
		slog.String("request_id", r.Header.Get("X-Request-ID")),
		slog.Int("text_length", len(req.Text)),
		slog.String("source_language", req.SourceLanguage),
		slog.String("target_language", req.TargetLanguage),
	)

	time.Sleep(b.delay)

	if b.fail {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(exchange.TextTranslation{Translation: "Error while calling LLM: simulated backend failure"})
		return
	}

	json.NewEncoder(w).Encode(exchange.TextTranslation{
		Translation: fmt.Sprintf("[%s] mock translation of: %s", req.TargetLanguage, req.Text),
	})
}

func (b *backend) handleReadAloud(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exchange.ReadAloudRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	b.logger.Info("Read aloud request received",
		slog.String("request_id", r.Header.Get("X-Request-ID")),
		slog.Int("text_length", len(req.Text)),
		slog.String("voice", req.Voice),
	)

	time.Sleep(b.delay)

	if b.fail {
		http.Error(w, "Error while generating audio: simulated backend failure", http.StatusInternalServerError)
		return
	}

	// Longer text reads for longer, capped at three seconds
	d := time.Duration(len(req.Text)) * 60 * time.Millisecond
	if d > 3*time.Second {
		d = 3 * time.Second
	}
	tone, err := toneWAV(16000, 660, d)
	if err != nil {
		http.Error(w, "Error while generating audio: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exchange.ReadAloudResult{AudioBase64: base64.StdEncoding.EncodeToString(tone)})
}

// toneWAV synthesizes a mono sine tone
func toneWAV(sampleRate int, freq float64, d time.Duration) ([]byte, error) {
	frames := int(d.Seconds() * float64(sampleRate))
	buf := audio.NewPCMBuffer(sampleRate, 1, frames)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return audio.EncodeWAV(buf)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	fail := flag.Bool("fail", false, "Answer every request except ping with HTTP 500")
	delay := flag.Duration("delay", 200*time.Millisecond, "Simulated processing time")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	b := &backend{
		username: envOr(config.EnvUser, "translator"),
		password: envOr(config.EnvPassword, "translator"),
		fail:     *fail,
		delay:    *delay,
		logger:   logger,
	}

	logger.Info("Mock translator backend starting",
		slog.String("address", *addr),
		slog.String("prefix", apiPrefix),
		slog.Bool("fail", *fail),
	)

	server := &http.Server{
		Addr:         *addr,
		Handler:      b.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

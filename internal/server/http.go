package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asrlab/asr-pipeline/internal/audio"
	"github.com/asrlab/asr-pipeline/internal/config"
	"github.com/asrlab/asr-pipeline/internal/decode"
	"github.com/asrlab/asr-pipeline/internal/inference"
	"github.com/asrlab/asr-pipeline/internal/metrics"
	"github.com/asrlab/asr-pipeline/internal/pipeline"
	"github.com/asrlab/asr-pipeline/internal/wer"
)

// HTTPServer provides HTTP API endpoints for transcription and monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	pipeline *pipeline.Pipeline
	client   *inference.Client
	metrics  *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	p *pipeline.Pipeline, client *inference.Client, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		pipeline:  p,
		client:    client,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Pipeline endpoints
	mux.HandleFunc("/v1/transcribe", h.withMetrics("/v1/transcribe", h.handleTranscribe))
	mux.HandleFunc("/v1/features", h.withMetrics("/v1/features", h.handleFeatures))
	mux.HandleFunc("/v1/decode", h.withMetrics("/v1/decode", h.handleDecode))
	mux.HandleFunc("/v1/wer", h.withMetrics("/v1/wer", h.handleWER))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
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

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// audioInput is the shared audio portion of transcribe/features requests.
// Either Samples or PCM16 (base64 s16le) must be set.
type audioInput struct {
	Samples    []float64 `json:"samples,omitempty"`
	PCM16      string    `json:"audio_pcm16,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
}

// decodeAudio resolves the request's audio payload to float samples
func (h *HTTPServer) decodeAudio(in *audioInput) ([]float64, error) {
	if in.SampleRate != 0 && in.SampleRate != h.config.Audio.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d does not match configured %d",
			pipeline.ErrInvalidInput, in.SampleRate, h.config.Audio.SampleRate)
	}

	if len(in.Samples) > 0 {
		return in.Samples, nil
	}

	if in.PCM16 != "" {
		raw, err := base64.StdEncoding.DecodeString(in.PCM16)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 PCM payload: %v", pipeline.ErrInvalidInput, err)
		}
		samples, err := audio.DecodePCM16(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
		}
		return samples, nil
	}

	return nil, fmt.Errorf("%w: request carries neither samples nor audio_pcm16", pipeline.ErrInvalidInput)
}

type transcribeRequest struct {
	audioInput
	Reference string `json:"reference,omitempty"`
}

type transcribeResponse struct {
	RequestID    string   `json:"request_id"`
	Text         string   `json:"text"`
	NFrames      int      `json:"n_frames"`
	PaddedFrames int      `json:"padded_frames"`
	WER          *float64 `json:"wer,omitempty"`
	ProcessingMs int64    `json:"processing_ms"`
}

// handleTranscribe runs the full pipeline on one utterance
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	samples, err := h.decodeAudio(&req.audioInput)
	if err != nil {
		h.writeTypedError(w, err)
		return
	}

	start := time.Now()
	result, err := h.pipeline.Transcribe(r.Context(), samples)
	if err != nil {
		h.writeTypedError(w, err)
		return
	}

	resp := transcribeResponse{
		RequestID:    result.RequestID,
		Text:         result.Text,
		NFrames:      result.NFrames,
		PaddedFrames: result.PaddedFrames,
		ProcessingMs: time.Since(start).Milliseconds(),
	}

	if req.Reference != "" {
		score := wer.Score(req.Reference, result.Text)
		resp.WER = &score
		h.metrics.RecordWER(score)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type featuresResponse struct {
	NMels        int       `json:"n_mels"`
	NFrames      int       `json:"n_frames"`
	PaddedFrames int       `json:"padded_frames"`
	ValidLength  int       `json:"valid_length"`
	Peak         float64   `json:"peak"`
	Data         []float64 `json:"data"`
}

// handleFeatures runs feature extraction only
func (h *HTTPServer) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req audioInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	samples, err := h.decodeAudio(&req)
	if err != nil {
		h.writeTypedError(w, err)
		return
	}

	result, err := h.pipeline.ExtractFeatures(samples)
	if err != nil {
		h.writeTypedError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, featuresResponse{
		NMels:        result.Tensor.NMels,
		NFrames:      result.Tensor.NFrames,
		PaddedFrames: result.Tensor.PaddedFrames,
		ValidLength:  result.ValidLength,
		Peak:         result.Stats.Peak,
		Data:         result.Tensor.Data,
	})
}

type decodeRequest struct {
	Logits      [][]float64   `json:"logits,omitempty"`
	BatchLogits [][][]float64 `json:"batch_logits,omitempty"`
}

// handleDecode decodes an externally produced logits matrix
func (h *HTTPServer) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	logits := req.Logits
	if logits == nil && req.BatchLogits != nil {
		var err error
		logits, err = decode.UnwrapBatch(req.BatchLogits)
		if err != nil {
			h.writeTypedError(w, err)
			return
		}
	}

	text, err := h.pipeline.DecodeLogits(logits)
	if err != nil {
		h.writeTypedError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type werRequest struct {
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`
}

// handleWER scores a hypothesis against a reference transcript
func (h *HTTPServer) handleWER(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	var req werRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	score := wer.Score(req.Reference, req.Hypothesis)
	h.metrics.RecordWER(score)

	h.writeJSON(w, http.StatusOK, map[string]float64{"wer": score})
}

// handleHealth returns service health status
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	uptime := time.Since(h.startTime)
	h.mu.RUnlock()

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  uptime.String(),
		"version": "1.0.0",
	})
}

// handleStats returns inference client statistics
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"uptime": time.Since(h.startTime).String(),
	}
	if h.client != nil {
		stats["inference"] = h.client.GetStats()
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleConfig returns the active configuration without sensitive values
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"audio": map[string]any{
			"sample_rate": h.config.Audio.SampleRate,
			"target_peak": h.config.Audio.TargetPeak,
			"amplify":     h.config.Audio.Amplify,
			"dither":      h.config.Audio.Dither,
		},
		"features": h.config.Features,
		"decode": map[string]any{
			"blank_index":     h.config.Decode.BlankIndex,
			"boundary_marker": h.config.Decode.BoundaryMarker,
		},
		"inference": map[string]any{
			"endpoint":       h.config.Inference.Endpoint,
			"timeout":        h.config.Inference.Timeout,
			"max_concurrent": h.config.Inference.MaxConcurrent,
		},
	})
}

// handleRoot lists the available endpoints
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeError(w, http.StatusNotFound, "not_found", "unknown endpoint")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"service": "asr-pipeline",
		"endpoints": []string{
			"POST /v1/transcribe",
			"POST /v1/features",
			"POST /v1/decode",
			"POST /v1/wer",
			"GET /health",
			"GET /stats",
			"GET /config",
			"GET /metrics",
		},
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeTypedError maps pipeline error kinds to HTTP status codes
func (h *HTTPServer) writeTypedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, decode.ErrLogitsShape):
		h.writeError(w, http.StatusBadRequest, "decode_format_error", err.Error())
	case errors.Is(err, decode.ErrVocabularyUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "vocabulary_unavailable", err.Error())
	case errors.Is(err, inference.ErrTimeout):
		h.writeError(w, http.StatusGatewayTimeout, "inference_timeout", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

// Start begins serving HTTP requests in a background goroutine
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server")
	return h.server.Shutdown(ctx)
}

package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/asrlab/asr-pipeline/internal/config"
	"github.com/asrlab/asr-pipeline/internal/decode"
	"github.com/asrlab/asr-pipeline/internal/metrics"
	"github.com/asrlab/asr-pipeline/internal/pipeline"
)

var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

// sharedMetrics registers the Prometheus collectors once; promauto panics on
// duplicate registration within a test binary.
func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Port: 8080, Address: "127.0.0.1"},
		Audio: config.AudioConfig{
			SampleRate: 16000,
			TargetPeak: 0.95,
			TargetAmp:  0.3,
		},
		Features: config.FeaturesConfig{
			NFft:      512,
			WinLength: 400,
			HopLength: 160,
			NMels:     64,
			FMax:      8000,
			PadTo:     16,
		},
		Decode: config.DecodeConfig{
			VocabPath:      "unused",
			BlankIndex:     3,
			BoundaryMarker: "|",
		},
		Inference: config.InferenceConfig{Endpoint: "http://localhost:9000", Timeout: 30, MaxConcurrent: 2},
	}

	vocab, err := decode.NewVocabulary([]string{"h", "i", "|", "_"}, "|")
	if err != nil {
		t.Fatalf("NewVocabulary failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(new(discardWriter), &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := pipeline.New(pipeline.Config{
		SampleRate: cfg.Audio.SampleRate,
		TargetPeak: cfg.Audio.TargetPeak,
		NFft:       cfg.Features.NFft,
		WinLength:  cfg.Features.WinLength,
		HopLength:  cfg.Features.HopLength,
		NMels:      cfg.Features.NMels,
		FMax:       cfg.Features.FMax,
		PadTo:      cfg.Features.PadTo,
	}, vocab, cfg.Decode.BlankIndex, nil, logger, nil)
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}

	return NewHTTPServer(cfg.HTTP, logger, cfg, p, nil, sharedMetrics())
}

func postJSON(t *testing.T, h http.HandlerFunc, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleWER(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleWER, map[string]string{
		"reference":  "a b c",
		"hypothesis": "a x c",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if math.Abs(resp["wer"]-1.0/3.0) > 1e-9 {
		t.Errorf("Expected WER 1/3, got %f", resp["wer"])
	}
}

func TestHandleDecode(t *testing.T) {
	s := newTestServer(t)

	oneHot := func(idx int) []float64 {
		row := make([]float64, 4)
		row[idx] = 5
		return row
	}

	rec := postJSON(t, s.handleDecode, map[string]any{
		"logits": [][]float64{oneHot(0), oneHot(1)},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["text"] != "Hi." {
		t.Errorf("Expected %q, got %q", "Hi.", resp["text"])
	}
}

func TestHandleDecodeBatch(t *testing.T) {
	s := newTestServer(t)

	oneHot := func(idx int) []float64 {
		row := make([]float64, 4)
		row[idx] = 5
		return row
	}

	rec := postJSON(t, s.handleDecode, map[string]any{
		"batch_logits": [][][]float64{{oneHot(0), oneHot(1)}},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleDecodeShapeError(t *testing.T) {
	s := newTestServer(t)

	// Row width 2 disagrees with the 4-token vocabulary
	rec := postJSON(t, s.handleDecode, map[string]any{
		"logits": [][]float64{{1, 2}},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse error response: %v", err)
	}

	if resp.Error != "decode_format_error" {
		t.Errorf("Expected decode_format_error, got %q", resp.Error)
	}
}

func TestHandleFeatures(t *testing.T) {
	s := newTestServer(t)

	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	rec := postJSON(t, s.handleFeatures, map[string]any{"samples": samples})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp featuresResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.NFrames != 98 || resp.PaddedFrames != 112 || resp.ValidLength != 112 {
		t.Errorf("Unexpected geometry: %+v", resp)
	}

	if len(resp.Data) != 64*112 {
		t.Errorf("Expected %d values, got %d", 64*112, len(resp.Data))
	}
}

func TestHandleFeaturesEmptyAudio(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleFeatures, map[string]any{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleFeaturesSampleRateMismatch(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleFeatures, map[string]any{
		"samples":     make([]float64, 16000),
		"sample_rate": 8000,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for sample rate mismatch, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/wer", nil)
	rec := httptest.NewRecorder()
	s.handleWER(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rec.Code)
	}
}

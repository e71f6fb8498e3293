package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ASR pipeline service
type Metrics struct {
	// Feature extraction metrics
	UtterancesProcessed prometheus.Counter
	FeatureErrors       prometheus.Counter
	FeatureDuration     prometheus.Histogram
	FramesPerUtterance  prometheus.Histogram
	SignalPeak          prometheus.Histogram
	SilentUtterances    prometheus.Counter

	// Inference metrics
	InferenceRequests  prometheus.Counter
	InferenceSuccesses prometheus.Counter
	InferenceFailures  prometheus.Counter
	InferenceTimeouts  prometheus.Counter
	InferenceDuration  prometheus.Histogram

	// Decode metrics
	DecodeRequests   prometheus.Counter
	DecodeErrors     prometheus.Counter
	DecodeDuration   prometheus.Histogram
	TranscriptLength prometheus.Histogram

	// Scoring metrics
	WERScores prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Feature extraction metrics
		UtterancesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_utterances_processed_total",
			Help: "Total number of utterances run through feature extraction",
		}),
		FeatureErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_feature_errors_total",
			Help: "Total number of feature extraction failures",
		}),
		FeatureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_feature_duration_seconds",
			Help:    "Time spent extracting log-mel features",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		FramesPerUtterance: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_frames_per_utterance",
			Help:    "Number of real (unpadded) STFT frames per utterance",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10), // 16 to ~8k frames
		}),
		SignalPeak: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_signal_peak",
			Help:    "Peak absolute amplitude of incoming audio",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		SilentUtterances: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_silent_utterances_total",
			Help: "Total number of utterances flagged as silent or near-silent",
		}),

		// Inference metrics
		InferenceRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_inference_requests_total",
			Help: "Total number of inference requests sent to the model server",
		}),
		InferenceSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_inference_successes_total",
			Help: "Total number of successful inference requests",
		}),
		InferenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_inference_failures_total",
			Help: "Total number of failed inference requests",
		}),
		InferenceTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_inference_timeouts_total",
			Help: "Total number of inference requests that hit the timeout",
		}),
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_inference_duration_seconds",
			Help:    "Duration of inference requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Decode metrics
		DecodeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_decode_requests_total",
			Help: "Total number of logits matrices decoded",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_decode_errors_total",
			Help: "Total number of decode failures (shape or vocabulary errors)",
		}),
		DecodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_decode_duration_seconds",
			Help:    "Time spent in greedy CTC decoding",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}),
		TranscriptLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_transcript_length_chars",
			Help:    "Length of post-processed transcripts in characters",
			Buckets: prometheus.ExponentialBuckets(4, 2, 10), // 4 to ~2k chars
		}),

		// Scoring metrics
		WERScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_wer_score",
			Help:    "Word error rate of scored transcripts (uncapped)",
			Buckets: prometheus.LinearBuckets(0, 0.1, 21), // 0.0 to 2.0
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFeatureExtraction records one utterance through feature extraction
func (m *Metrics) RecordFeatureExtraction(nFrames int, peak float64, durationSeconds float64) {
	m.UtterancesProcessed.Inc()
	m.FramesPerUtterance.Observe(float64(nFrames))
	m.SignalPeak.Observe(peak)
	m.FeatureDuration.Observe(durationSeconds)
}

// RecordFeatureError increments the feature failure counter
func (m *Metrics) RecordFeatureError() {
	m.FeatureErrors.Inc()
}

// RecordSilentUtterance increments the silent utterance counter
func (m *Metrics) RecordSilentUtterance() {
	m.SilentUtterances.Inc()
}

// RecordInference records an inference request outcome
func (m *Metrics) RecordInference(err error, timedOut bool, durationSeconds float64) {
	m.InferenceRequests.Inc()
	m.InferenceDuration.Observe(durationSeconds)
	if err == nil {
		m.InferenceSuccesses.Inc()
		return
	}
	m.InferenceFailures.Inc()
	if timedOut {
		m.InferenceTimeouts.Inc()
	}
}

// RecordDecode records a decode attempt
func (m *Metrics) RecordDecode(err error, transcriptChars int, durationSeconds float64) {
	m.DecodeRequests.Inc()
	m.DecodeDuration.Observe(durationSeconds)
	if err != nil {
		m.DecodeErrors.Inc()
		return
	}
	m.TranscriptLength.Observe(float64(transcriptChars))
}

// RecordWER records a word error rate observation
func (m *Metrics) RecordWER(score float64) {
	m.WERScores.Observe(score)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/asrlab/asr-pipeline/internal/audio"
	"github.com/asrlab/asr-pipeline/internal/decode"
	"github.com/asrlab/asr-pipeline/internal/dsp"
	"github.com/asrlab/asr-pipeline/internal/inference"
	"github.com/asrlab/asr-pipeline/internal/mel"
	"github.com/asrlab/asr-pipeline/internal/metrics"
)

// silencePeak is the peak below which an utterance is flagged as degenerate.
// Processing continues; the condition is logged and counted, never fatal.
const silencePeak = 0.001

// ErrInvalidInput indicates an empty audio buffer or one shorter than a
// single analysis window.
var ErrInvalidInput = errors.New("invalid audio input")

// Config contains the pipeline's processing parameters
type Config struct {
	SampleRate int
	TargetPeak float64
	Amplify    bool
	TargetAmp  float64
	Dither     bool

	NFft      int
	WinLength int
	HopLength int
	NMels     int
	FMin      float64
	FMax      float64
	PadTo     int

	// DitherSeed fixes the dither entropy for reproducible runs; zero seeds
	// from the clock per invocation.
	DitherSeed int64
}

// FeatureResult is the outcome of feature extraction for one utterance
type FeatureResult struct {
	Tensor *mel.FeatureTensor
	Stats  audio.SignalStats

	// ValidLength is the length declared to the model. It equals
	// Tensor.PaddedFrames, not the real frame count; the pretrained model's
	// contract was observed to expect the padded value.
	ValidLength int
}

// TranscriptResult is the outcome of a full transcription invocation
type TranscriptResult struct {
	RequestID    string            `json:"request_id"`
	Text         string            `json:"text"`
	RawText      string            `json:"raw_text"`
	NFrames      int               `json:"n_frames"`
	PaddedFrames int               `json:"padded_frames"`
	Stats        audio.SignalStats `json:"signal_stats"`
	FeatureTime  time.Duration     `json:"-"`
	InferTime    time.Duration     `json:"-"`
	DecodeTime   time.Duration     `json:"-"`
}

// Pipeline runs the per-utterance processing flow. The analyzer, filterbank
// and decoder are built once and shared read-only; every invocation owns its
// buffers and entropy source.
type Pipeline struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	analyzer *dsp.Analyzer
	fbank    *mel.Filterbank
	decoder  *decode.GreedyDecoder
	client   *inference.Client

	seedCounter atomic.Int64
}

// New creates a pipeline. client may be nil when only ExtractFeatures and
// DecodeLogits are used (no end-to-end transcription).
func New(cfg Config, vocab *decode.Vocabulary, blankIndex int, client *inference.Client,
	logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {

	analyzer, err := dsp.NewAnalyzer(cfg.NFft, cfg.WinLength, cfg.HopLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create STFT analyzer: %w", err)
	}

	fbank, err := mel.NewFilterbank(cfg.SampleRate, cfg.NFft, cfg.NMels, cfg.FMin, cfg.FMax)
	if err != nil {
		return nil, fmt.Errorf("failed to build mel filterbank: %w", err)
	}

	decoder, err := decode.NewGreedyDecoder(vocab, blankIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if cfg.TargetPeak == 0 {
		cfg.TargetPeak = audio.DefaultTargetPeak
	}
	if cfg.TargetAmp == 0 {
		cfg.TargetAmp = audio.DefaultTargetAmp
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		analyzer: analyzer,
		fbank:    fbank,
		decoder:  decoder,
		client:   client,
	}, nil
}

// ExtractFeatures runs an utterance through normalization, STFT, and log-mel
// feature building. Silent input is processed, not rejected; only empty or
// too-short input fails.
func (p *Pipeline) ExtractFeatures(samples []float64) (*FeatureResult, error) {
	start := time.Now()

	result, err := p.extractFeatures(samples)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordFeatureError()
		}
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordFeatureExtraction(result.Tensor.NFrames, result.Stats.Peak, time.Since(start).Seconds())
	}

	return result, nil
}

func (p *Pipeline) extractFeatures(samples []float64) (*FeatureResult, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty audio buffer", ErrInvalidInput)
	}

	if len(samples) < p.cfg.WinLength {
		return nil, fmt.Errorf("%w: %d samples is shorter than one analysis window (%d)",
			ErrInvalidInput, len(samples), p.cfg.WinLength)
	}

	if p.cfg.Amplify {
		samples, _ = audio.Amplify(samples, p.cfg.TargetAmp)
	}

	normalized, stats := audio.NormalizePeak(samples, p.cfg.TargetPeak)

	if stats.Peak < silencePeak {
		p.logger.Warn("Near-silent utterance, proceeding anyway",
			slog.Float64("peak", stats.Peak),
			slog.Float64("active_fraction", stats.ActiveFraction),
		)
		if p.metrics != nil {
			p.metrics.RecordSilentUtterance()
		}
	}

	if p.cfg.Dither {
		normalized = dsp.Dither(normalized, p.newRand())
	}

	frames := p.analyzer.Spectrogram(normalized)
	logMel := p.fbank.Apply(frames)

	tensor, err := mel.BuildTensor(logMel, p.cfg.NMels, p.cfg.PadTo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return &FeatureResult{
		Tensor:      tensor,
		Stats:       stats,
		ValidLength: tensor.PaddedFrames,
	}, nil
}

// DecodeLogits turns a T x V logits matrix into a post-processed transcript.
func (p *Pipeline) DecodeLogits(logits [][]float64) (string, error) {
	raw, err := p.decoder.Decode(logits)
	if err != nil {
		return "", err
	}
	return decode.PostProcess(raw), nil
}

// Transcribe runs the full flow for one utterance: features, inference,
// decode, post-process. The inference call is bounded by the client's
// configured timeout; a timeout surfaces as inference.ErrTimeout.
func (p *Pipeline) Transcribe(ctx context.Context, samples []float64) (*TranscriptResult, error) {
	if p.client == nil {
		return nil, fmt.Errorf("no inference client configured")
	}

	requestID := uuid.NewString()
	logger := p.logger.With(slog.String("request_id", requestID))

	featStart := time.Now()
	features, err := p.ExtractFeatures(samples)
	if err != nil {
		return nil, err
	}
	featTime := time.Since(featStart)

	logger.Debug("Features extracted",
		slog.Int("n_frames", features.Tensor.NFrames),
		slog.Int("padded_frames", features.Tensor.PaddedFrames),
		slog.Float64("peak", features.Stats.Peak),
	)

	inferStart := time.Now()
	resp, err := p.client.Infer(ctx, &inference.Request{
		RequestID:    requestID,
		NMels:        features.Tensor.NMels,
		PaddedFrames: features.Tensor.PaddedFrames,
		ValidLength:  features.ValidLength,
		Features:     features.Tensor.Data,
	})
	inferTime := time.Since(inferStart)

	if p.metrics != nil {
		p.metrics.RecordInference(err, errors.Is(err, inference.ErrTimeout), inferTime.Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	logits := resp.Logits
	if logits == nil && resp.BatchLogits != nil {
		logits, err = decode.UnwrapBatch(resp.BatchLogits)
		if err != nil {
			return nil, err
		}
	}

	decodeStart := time.Now()
	raw, err := p.decoder.Decode(logits)
	text := ""
	if err == nil {
		text = decode.PostProcess(raw)
	}
	decodeTime := time.Since(decodeStart)

	if p.metrics != nil {
		p.metrics.RecordDecode(err, len(text), decodeTime.Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	logger.Info("Utterance transcribed",
		slog.Int("n_frames", features.Tensor.NFrames),
		slog.Duration("feature_time", featTime),
		slog.Duration("inference_time", inferTime),
		slog.Int("transcript_chars", len(text)),
	)

	return &TranscriptResult{
		RequestID:    requestID,
		Text:         text,
		RawText:      raw,
		NFrames:      features.Tensor.NFrames,
		PaddedFrames: features.Tensor.PaddedFrames,
		Stats:        features.Stats,
		FeatureTime:  featTime,
		InferTime:    inferTime,
		DecodeTime:   decodeTime,
	}, nil
}

// newRand builds a per-invocation entropy source. A fixed DitherSeed gives
// reproducible noise in tests while staying reentrant: every call gets its
// own generator.
func (p *Pipeline) newRand() *rand.Rand {
	seed := p.cfg.DitherSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + p.seedCounter.Add(1)))
}

// Package enhanceengine applies per-segment denoising and reports a signal
// quality estimate used to flag segments that could not be cleaned up.
package enhanceengine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

// Engine denoises audio segments and estimates their signal-to-noise ratio.
type Engine struct {
	processor *audio.Processor
}

// New builds an Engine backed by processor.
func New(processor *audio.Processor) *Engine {
	return &Engine{processor: processor}
}

// Result is the outcome of enhancing one segment.
type Result struct {
	OutputPath string
	SNR        float64
	IsDenoised bool
}

// minSNRForDenoise is the threshold below which a segment is reported as
// not meaningfully denoised (the source was already clean or too noisy to
// help).
const minSNRForDenoise = 3.0

// Run denoises inputPath and estimates its resulting SNR from the PCM
// samples directly, without another ffmpeg round trip.
func (e *Engine) Run(ctx context.Context, inputPath string) (*Result, error) {
	outputPath, err := e.processor.Denoise(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}

	snr, err := estimateSNR(outputPath)
	if err != nil {
		return nil, fmt.Errorf("enhance: estimate snr: %w", err)
	}

	return &Result{
		OutputPath: outputPath,
		SNR:        snr,
		IsDenoised: snr >= minSNRForDenoise,
	}, nil
}

// estimateSNR computes a crude signal-to-noise estimate: the ratio between
// the RMS of the loudest decile of samples (signal) and the quietest decile
// (noise floor), in decibels.
func estimateSNR(wavPath string) (float64, error) {
	samples, _, err := audio.PCMSamples(wavPath)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}

	abs := make([]float64, len(samples))
	for i, s := range samples {
		abs[i] = math.Abs(float64(s))
	}

	sorted := append([]float64(nil), abs...)
	sort.Float64s(sorted)

	decile := len(sorted) / 10
	if decile == 0 {
		decile = 1
	}

	noiseRMS := rms(sorted[:decile])
	signalRMS := rms(sorted[len(sorted)-decile:])

	if noiseRMS == 0 {
		return 60.0, nil // silence floor, report a high ceiling value
	}
	return 20 * math.Log10(signalRMS/noiseRMS), nil
}

func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

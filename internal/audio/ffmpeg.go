// Package audio wraps the ffmpeg/ffprobe command-line tools used by the
// pipeline's stage engines: loudness normalization, silence-based
// segmentation, denoising, and HLS transcoding.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// Processor runs ffmpeg/ffprobe against local files, writing outputs under
// its own temp directory.
type Processor struct {
	tempDir   string
	extraArgs []string
}

// NewProcessor creates a Processor rooted at tempDir, creating it if needed.
// extraArgs are passed to ffmpeg in Normalize right after the input, ahead of
// the built-in loudnorm filter and output options; they are not merged into
// the loudnorm filter string.
func NewProcessor(tempDir string, extraArgs ...string) *Processor {
	if tempDir == "" {
		tempDir = "/tmp/audio_pipeline"
	}
	os.MkdirAll(tempDir, 0755)
	return &Processor{tempDir: tempDir, extraArgs: extraArgs}
}

func (p *Processor) tempPath(suffix string) string {
	return filepath.Join(p.tempDir, uuid.New().String()+suffix)
}

// Info is the subset of ffprobe's format/stream metadata the pipeline needs.
type Info struct {
	Duration   float64
	SampleRate int
	Channels   int
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe extracts duration, sample rate, and channel count from an audio file.
func (p *Processor) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{}
	if out.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	for _, s := range out.Streams {
		if s.CodecType == "audio" {
			info.SampleRate, _ = strconv.Atoi(s.SampleRate)
			info.Channels = s.Channels
			break
		}
	}
	return info, nil
}

// Normalize applies single-pass loudnorm loudness normalization and resamples to
// 16kHz mono WAV, the format the recognition/diarization engines expect.
func (p *Processor) Normalize(ctx context.Context, inputPath string) (string, error) {
	outputPath := p.tempPath("_clean.wav")

	args := []string{"-i", inputPath}
	args = append(args, p.extraArgs...)
	args = append(args,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)

	if err := p.run(ctx, "ffmpeg", args); err != nil {
		return "", fmt.Errorf("ffmpeg normalization failed: %w", err)
	}
	return outputPath, nil
}

// Denoise applies spectral noise reduction, returning the output path.
func (p *Processor) Denoise(ctx context.Context, inputPath string) (string, error) {
	outputPath := p.tempPath("_enhanced.wav")

	args := []string{
		"-i", inputPath,
		"-af", "afftdn=nf=-25",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}

	if err := p.run(ctx, "ffmpeg", args); err != nil {
		return "", fmt.Errorf("ffmpeg denoise failed: %w", err)
	}
	return outputPath, nil
}

// SilenceRange is one detected silent interval, in seconds from the start.
type SilenceRange struct {
	Start float64
	End   float64
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)`)
)

// DetectSilences runs the silencedetect filter and parses its stderr output
// into a list of silent ranges, used to choose segment boundaries.
func (p *Processor) DetectSilences(ctx context.Context, path string, noiseDB float64, minDurationSec float64) ([]SilenceRange, error) {
	filter := fmt.Sprintf("silencedetect=noise=%.1fdB:d=%.2f", noiseDB, minDurationSec)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-i", path, "-af", filter, "-f", "null", "-")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// silencedetect reports via stderr regardless of exit status when -f null
	// has no real output target, so ignore the run error and parse anyway.
	_ = cmd.Run()

	starts := silenceStartRe.FindAllStringSubmatch(stderr.String(), -1)
	ends := silenceEndRe.FindAllStringSubmatch(stderr.String(), -1)

	n := len(starts)
	if len(ends) < n {
		n = len(ends)
	}

	ranges := make([]SilenceRange, 0, n)
	for i := 0; i < n; i++ {
		start, _ := strconv.ParseFloat(starts[i][1], 64)
		end, _ := strconv.ParseFloat(ends[i][1], 64)
		ranges = append(ranges, SilenceRange{Start: start, End: end})
	}
	return ranges, nil
}

// ExtractRange cuts [startMS, endMS) out of inputPath into a new file.
func (p *Processor) ExtractRange(ctx context.Context, inputPath string, startMS, endMS int64) (string, error) {
	outputPath := p.tempPath("_segment.wav")

	startSec := float64(startMS) / 1000.0
	durationSec := float64(endMS-startMS) / 1000.0

	args := []string{
		"-i", inputPath,
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}

	if err := p.run(ctx, "ffmpeg", args); err != nil {
		return "", fmt.Errorf("ffmpeg extract range failed: %w", err)
	}
	return outputPath, nil
}

// TranscodeHLS segments inputPath into an HLS rendition (playlist + .ts
// chunks) under outputDir.
func (p *Processor) TranscodeHLS(ctx context.Context, inputPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create hls output dir: %w", err)
	}

	playlistPath := filepath.Join(outputDir, "index.m3u8")
	segmentPattern := filepath.Join(outputDir, "segment_%03d.ts")

	args := []string{
		"-i", inputPath,
		"-codec:a", "aac",
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", "6",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
		"-y",
		playlistPath,
	}

	if err := p.run(ctx, "ffmpeg", args); err != nil {
		return "", fmt.Errorf("ffmpeg hls transcode failed: %w", err)
	}
	return playlistPath, nil
}

func (p *Processor) run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v, stderr: %s", err, stderr.String())
	}
	return nil
}

// PCMSamples decodes a mono 16-bit WAV file (the format Normalize produces)
// into normalized float32 samples in [-1, 1], for in-process amplitude
// analysis that doesn't need another ffmpeg invocation.
func PCMSamples(wavPath string) ([]float32, int, error) {
	file, err := os.Open(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", wavPath)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav: %w", err)
	}

	const maxInt16 = 32768.0
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / maxInt16
	}
	return samples, int(decoder.SampleRate), nil
}

// CheckInstallation verifies ffmpeg and ffprobe are on PATH.
func CheckInstallation() error {
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH")
	}
	if err := exec.Command("ffprobe", "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found on PATH")
	}
	return nil
}

// Package normalizer implements the audio normalizer (C2): it converts an
// arbitrary local audio file into the mono/16kHz/16-bit-PCM form the
// transcriber requires, invoking ffmpeg as a sub-process when a conversion
// is actually needed.
package normalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"pipeline/internal/models"
	"pipeline/pkg/binaries"
	"pipeline/pkg/logger"
)

const (
	targetSampleRate = 16000
	targetChannels   = 1
	targetBitDepth   = 16
)

// Normalizer converts audio files into the transcriber's required format,
// writing outputs as siblings of the cache directory's fetched files.
type Normalizer struct {
	cacheDir string
}

// New returns a Normalizer that writes converted files into cacheDir.
func New(cacheDir string) *Normalizer {
	return &Normalizer{cacheDir: cacheDir}
}

type probeResult struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		SampleFmt  string `json:"sample_fmt"`
	} `json:"streams"`
}

// Normalize probes input and, if it is not already conformant, invokes
// ffmpeg to produce a mono/16kHz/16-bit-PCM WAV sibling file. Idempotent by
// basename: re-running against an already-converted file is a no-op.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (models.NormalizedAudio, error) {
	probe, err := n.probe(ctx, inputPath)
	if err != nil {
		return models.NormalizedAudio{}, err
	}

	if conforms(probe) {
		return models.NormalizedAudio{
			Path:       inputPath,
			SampleRate: targetSampleRate,
			Channels:   targetChannels,
			BitDepth:   targetBitDepth,
		}, nil
	}

	outPath := n.outputPath(inputPath)
	if err := n.convert(ctx, inputPath, outPath); err != nil {
		return models.NormalizedAudio{}, err
	}
	return models.NormalizedAudio{
		Path:       outPath,
		SampleRate: targetSampleRate,
		Channels:   targetChannels,
		BitDepth:   targetBitDepth,
	}, nil
}

func (n *Normalizer) outputPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(n.cacheDir, base+"_16k_mono.wav")
}

func (n *Normalizer) probe(ctx context.Context, path string) (probeResult, error) {
	ffprobe := binaries.FFprobe()
	if _, err := exec.LookPath(ffprobe); err != nil {
		return probeResult{}, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}

	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return probeResult{}, fmt.Errorf("normalizer: ffprobe %s: %w: %s", path, err, stderr.String())
	}

	var result probeResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return probeResult{}, fmt.Errorf("normalizer: parse ffprobe output: %w", err)
	}
	return result, nil
}

func conforms(p probeResult) bool {
	for _, s := range p.Streams {
		if s.CodecType != "audio" {
			continue
		}
		rate, _ := strconv.Atoi(s.SampleRate)
		isPCM := strings.HasPrefix(s.CodecName, "pcm_s16")
		return isPCM && rate == targetSampleRate && s.Channels == targetChannels
	}
	return false
}

// convert invokes ffmpeg with a deterministic command set: downmix to mono,
// resample to 16kHz, 16-bit signed samples, WAV container, overwrite
// output.
func (n *Normalizer) convert(ctx context.Context, inputPath, outputPath string) error {
	ffmpeg := binaries.FFmpeg()
	if _, err := exec.LookPath(ffmpeg); err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-ac", strconv.Itoa(targetChannels),
		"-ar", strconv.Itoa(targetSampleRate),
		"-sample_fmt", "s16",
		"-f", "wav",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("normalizer converting audio", "input", inputPath, "output", outputPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("normalizer: ffmpeg convert %s: %w: %s", inputPath, err, stderr.String())
	}
	return nil
}

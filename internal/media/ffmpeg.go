// Package media shells out to ffprobe and ffmpeg for audio inspection and
// decoding.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const maxStderr = 4 * 1024

// Probe is the subset of ffprobe output the pipeline reads.
type Probe struct {
	DurationSeconds float64
	FormatName      string
	SizeBytes       int64
}

// FFmpeg runs the ffprobe/ffmpeg binaries found at the configured paths.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

func New(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Probe reads container metadata of the file at path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Probe, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration,format_name,size",
		"-of", "json",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Probe{}, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, tail(stderr.String()))
	}
	return parseProbe(out.Bytes())
}

func parseProbe(b []byte) (Probe, error) {
	var raw struct {
		Format struct {
			Duration   string `json:"duration"`
			FormatName string `json:"format_name"`
			Size       string `json:"size"`
		} `json:"format"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Probe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	p := Probe{FormatName: raw.Format.FormatName}
	if raw.Format.Duration != "" {
		d, err := strconv.ParseFloat(raw.Format.Duration, 64)
		if err != nil {
			return Probe{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
		}
		p.DurationSeconds = d
	}
	if raw.Format.Size != "" {
		p.SizeBytes, _ = strconv.ParseInt(raw.Format.Size, 10, 64)
	}
	return p, nil
}

// ToWaveform decodes in to a 16 kHz mono PCM WAV at out.
func (f *FFmpeg) ToWaveform(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-ac", "1", "-ar", "16000", "-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, tail(stderr.String()))
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[len(s)-maxStderr:]
	}
	return s
}

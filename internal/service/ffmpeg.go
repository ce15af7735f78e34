package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FFmpegRunner is the production TaskRunner. It shells out to ffmpeg
// and turns its -progress output into percent reports.
type FFmpegRunner struct {
	Path string // ffmpeg binary
	Dir  string // directory holding uploaded files
}

func NewFFmpegRunner() *FFmpegRunner {
	return &FFmpegRunner{
		Path: viper.GetString("transcode.ffmpeg_path"),
		Dir:  "uploads",
	}
}

func (r *FFmpegRunner) Run(ctx context.Context, fileName string, report func(percent int)) error {
	in := filepath.Join(r.Dir, fileName)
	out := filepath.Join(r.Dir, "transcoded_"+fileName)

	duration, err := probeDuration(in)
	if err != nil {
		return fmt.Errorf("failed to run ffprobe to determine video duration, %w", err)
	}

	args := []string{
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-c:a", "copy",
		"-movflags", "+faststart",
		"-loglevel", "error",
		out,
		"-progress", "pipe:2",
		"-nostats",
	}

	cmd := exec.CommandContext(ctx, r.Path, args...)

	zap.L().Debug("Running FFmpeg command", zap.String("cmd", cmd.String()))

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe, %w", err)
	}

	stderrBuf := &bytes.Buffer{}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg, %w", err)
	}

	scanner := bufio.NewScanner(stderrPipe)
	for scanner.Scan() {
		line := scanner.Text()

		if line == "progress=end" {
			break
		}

		if after, ok := strings.CutPrefix(line, "out_time_ms="); ok {
			outTimeMs, err := strconv.ParseFloat(after, 64)
			if err == nil && duration > 0 {
				report(int((outTimeMs / (duration * 1000)) / 10))
			}
			continue
		}

		// Anything that isn't a key=value progress line is an actual
		// error message
		if !strings.Contains(line, "=") {
			stderrBuf.WriteString(line + "\n")
		}
	}

	if err := cmd.Wait(); err != nil {
		zap.L().Error("FFmpeg failed", zap.Error(err), zap.String("stderr", stderrBuf.String()))
		return fmt.Errorf("ffmpeg failed, %w", err)
	}

	return nil
}

func probeDuration(p string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "-i", p)

	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed, %w (%s)", err, stdErr.String())
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(stdOut.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration: %w (%s)", err, stdErr.String())
	}

	return d, nil
}

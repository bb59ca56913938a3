package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ffprobeOutput 只关心 format.duration
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober 通过 ffprobe 获取媒体时长，输入可以是本地路径或 URL
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber 根据 ffmpeg 路径推导 ffprobe 路径
func NewProber(ffmpegPath string) *Prober {
	return &Prober{ffprobePath: ffprobeFor(ffmpegPath), timeout: 10 * time.Second}
}

func ffprobeFor(ffmpegPath string) string {
	if ffmpegPath == "" {
		return "ffprobe"
	}
	dir, base := filepath.Split(ffmpegPath)
	return dir + strings.Replace(base, "ffmpeg", "ffprobe", 1)
}

// Path 返回使用的 ffprobe 可执行文件
func (p *Prober) Path() string {
	return p.ffprobePath
}

// Duration 返回媒体时长（秒）
func (p *Prober) Duration(ctx context.Context, input string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		input,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", input, err, stderr.String())
	}
	return parseProbeOutput(out.Bytes())
}

func parseProbeOutput(out []byte) (float64, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(out, &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w\nFFprobe Output: %s", err, out)
	}

	if probeData.Format.Duration == "" || probeData.Format.Duration == "N/A" {
		return 0, fmt.Errorf("duration not found in ffprobe output\nFFprobe Output: %s", out)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", duration)
	}
	return duration, nil
}

// Package video wraps ffprobe and ffmpeg for the metadata and cover frame a
// reel upload needs.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidProbe = errors.New("invalid ffprobe output")

// Clip is a source video plus what Instagram asks for alongside it.
type Clip struct {
	Path     string
	Width    int
	Height   int
	Duration float64
	Cover    string

	tmpDir string
}

// Cleanup removes the extracted cover frame.
func (c *Clip) Cleanup() {
	if c == nil || c.tmpDir == "" {
		return
	}
	_ = os.RemoveAll(c.tmpDir)
}

// Probe reads width, height and duration of the first video stream. The
// container duration is used when the stream does not report one.
func Probe(ctx context.Context, path string) (width, height int, duration float64, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration:format=duration",
		"-of", "default=noprint_wrappers=1",
		path)

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	return parseProbe(string(out))
}

// parseProbe reads ffprobe's key=value output. The stream section comes
// first, so a later format duration only fills a missing stream duration.
func parseProbe(out string) (width, height int, duration float64, err error) {
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			width, _ = strconv.Atoi(value)
		case "height":
			height, _ = strconv.Atoi(value)
		case "duration":
			if d, perr := strconv.ParseFloat(value, 64); perr == nil && duration == 0 {
				duration = d
			}
		}
	}

	if width <= 0 || height <= 0 || duration <= 0 {
		return 0, 0, 0, ErrInvalidProbe
	}
	return width, height, duration, nil
}

// ExtractCover writes a single jpeg frame taken at offset seconds.
func ExtractCover(ctx context.Context, path, dst string, offset float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-ss", strconv.FormatFloat(offset, 'f', 2, 64),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		dst)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg cover: %w: %s", err, strings.TrimSpace(lastLine(string(out))))
	}
	return nil
}

// PrepareClip probes the video and extracts its cover concurrently. Callers
// must call Cleanup on the result.
func PrepareClip(ctx context.Context, path string) (*Clip, error) {
	tmpDir, err := os.MkdirTemp("", "reel_upload")
	if err != nil {
		return nil, err
	}

	clip := &Clip{
		Path:   path,
		Cover:  filepath.Join(tmpDir, "cover.jpg"),
		tmpDir: tmpDir,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w, h, d, err := Probe(gctx, path)
		if err != nil {
			return err
		}
		clip.Width, clip.Height, clip.Duration = w, h, d
		return nil
	})

	g.Go(func() error {
		return ExtractCover(gctx, path, clip.Cover, 0.5)
	})

	if err := g.Wait(); err != nil {
		clip.Cleanup()
		return nil, err
	}

	return clip, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
)

// Transcoder converts one source recording to its archive destination.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// CommandRunner executes an external command. Injectable so tests can run
// the workflow without ffmpeg installed.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, tail(msg, 512))
		}
		return err
	}
	return nil
}

// FFmpegTranscoder shells out to ffmpeg for WAV to FLAC conversion. Sample
// rate and bitrate come from configuration; source metadata is carried over
// into the output.
type FFmpegTranscoder struct {
	ffmpegPath string
	sampleRate int
	bitrate    string
	runner     CommandRunner
}

// NewFFmpegTranscoder builds a transcoder from archive settings.
func NewFFmpegTranscoder(settings *conf.ArchiveSettings) *FFmpegTranscoder {
	return &FFmpegTranscoder{
		ffmpegPath: settings.FfmpegPath,
		sampleRate: settings.SampleRate,
		bitrate:    settings.Bitrate,
		runner:     defaultRunner,
	}
}

// SetRunner replaces the command runner. Used by tests.
func (t *FFmpegTranscoder) SetRunner(r CommandRunner) { t.runner = r }

// Transcode converts src to dst, creating the destination directory on
// demand. A failed conversion removes any partial output so a retry starts
// clean.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("operation", "create_destination_dir").
			FileContext(dst).
			Build()
	}

	args := []string{
		"-i", src,
		"-acodec", "flac",
		"-ar", strconv.Itoa(t.sampleRate),
		"-b:a", t.bitrate,
		"-map_metadata", "0",
		"-y",
		dst,
	}
	if err := t.runner(ctx, t.ffmpegPath, args...); err != nil {
		if removeErr := os.Remove(dst); removeErr != nil && !os.IsNotExist(removeErr) {
			err = errors.Join(err, removeErr)
		}
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryTranscode).
			Context("operation", "transcode").
			FileContext(src).
			Build()
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

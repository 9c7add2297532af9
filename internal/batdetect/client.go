// Package batdetect runs the external BatDetect2 detector over a recording
// and parses its prediction output.
package batdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/logging"
)

// Interface runs detection over a single recording.
type Interface interface {
	Detect(ctx context.Context, path string) (Prediction, error)
}

// CommandRunner executes an external command and returns its stdout.
// Injectable so tests can stub the detector binary.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, truncate(msg, 512))
		}
		return out, err
	}
	return out, nil
}

// Client invokes the configured detector command. The command is expected to
// print a single JSON document on stdout containing the prediction, either
// directly or wrapped in a pred_dict field.
type Client struct {
	cfg    Config
	logger *slog.Logger
	runner CommandRunner
}

// New returns a detector client for the given configuration.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.ForService("batdetect"),
		runner: defaultRunner,
	}
}

// SetRunner replaces the command runner. Used by tests.
func (c *Client) SetRunner(r CommandRunner) { c.runner = r }

// Detect runs the detector over the recording at path.
func (c *Client) Detect(ctx context.Context, path string) (Prediction, error) {
	args := c.buildArgs(path)
	c.logger.Debug("running detector",
		"command", c.cfg.Command,
		"path", path,
		"threshold", c.cfg.Threshold)

	out, err := c.runner(ctx, c.cfg.Command, args...)
	if err != nil {
		return Prediction{}, errors.New(err).
			Component("batdetect").
			Category(errors.CategoryCommandExecution).
			Context("operation", "detect").
			FileContext(path).
			Build()
	}

	pred, err := parsePrediction(out)
	if err != nil {
		return Prediction{}, errors.New(err).
			Component("batdetect").
			Category(errors.CategoryDetection).
			Context("operation", "parse_prediction").
			FileContext(path).
			Build()
	}

	c.logger.Debug("detection complete",
		"path", path,
		"class_name", pred.ClassName,
		"events", len(pred.Events))
	return pred, nil
}

func (c *Client) buildArgs(path string) []string {
	return []string{
		"detect",
		path,
		"--detection-threshold", strconv.FormatFloat(c.cfg.Threshold, 'f', -1, 64),
		"--chunk-size", strconv.Itoa(c.cfg.ChunkSize),
		"--target-samp-rate", strconv.Itoa(c.cfg.TargetSampleRate),
		"--min-freq", strconv.Itoa(c.cfg.MinFreqHz),
	}
}

func parsePrediction(out []byte) (Prediction, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Prediction{}, fmt.Errorf("detector produced no output")
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.PredDict != nil {
		return *envelope.PredDict, nil
	}

	var pred Prediction
	if err := json.Unmarshal(trimmed, &pred); err != nil {
		return Prediction{}, fmt.Errorf("decoding detector output: %w", err)
	}
	return pred, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package export assembles the classification feed and pushes it to the
// record table of the feature service.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/logging"
)

// Row is one entry of the classification feed.
type Row struct {
	FileName       string  `json:"file_name"`
	DeploymentID   int     `json:"deployment_id"`
	ClassName      string  `json:"class_name"`
	RecordingNight string  `json:"recording_night"`
	Duration       float64 `json:"duration"`
}

// Pusher uploads feed rows. Injectable so the assembler can be tested and
// dry runs can print instead of pushing.
type Pusher interface {
	AddFeatures(ctx context.Context, rows []Row) error
}

// addFeaturesResponse mirrors the feature service edit response. Each
// addResult reports per-feature success.
type addFeaturesResponse struct {
	AddResults []struct {
		ObjectID int  `json:"objectId"`
		Success  bool `json:"success"`
		Error    *struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"addResults"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client pushes feed rows to the feature service record table.
type Client struct {
	endpoint   string
	token      string
	table      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feature service push client from settings.
func NewClient(settings *conf.Settings) *Client {
	return &Client{
		endpoint:   strings.TrimRight(settings.Export.Endpoint, "/"),
		token:      settings.Export.Token,
		table:      settings.Export.RecordTable,
		httpClient: &http.Client{Timeout: 45 * time.Second},
		logger:     logging.ForService("export"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// AddFeatures pushes one batch of rows to the record table.
func (c *Client) AddFeatures(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	type feature struct {
		Attributes Row `json:"attributes"`
	}
	features := make([]feature, 0, len(rows))
	for _, row := range rows {
		features = append(features, feature{Attributes: row})
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return pushError(err, "encode_features")
	}

	form := url.Values{}
	form.Set("features", string(payload))
	form.Set("f", "json")
	if c.token != "" {
		form.Set("token", c.token)
	}

	addURL := fmt.Sprintf("%s/%s/addFeatures", c.endpoint, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addURL, strings.NewReader(form.Encode()))
	if err != nil {
		return pushError(err, "build_request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pushError(err, "add_features")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pushError(
			fmt.Errorf("feature service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"add_features")
	}

	var decoded addFeaturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return pushError(fmt.Errorf("decoding add features response: %w", err), "decode_response")
	}
	if decoded.Error != nil {
		return pushError(
			fmt.Errorf("feature service error %d: %s", decoded.Error.Code, decoded.Error.Message),
			"add_features")
	}
	for i, res := range decoded.AddResults {
		if !res.Success {
			desc := "unknown error"
			if res.Error != nil {
				desc = res.Error.Description
			}
			return pushError(
				fmt.Errorf("feature %d rejected: %s", i, desc),
				"add_features")
		}
	}

	c.logger.Debug("pushed feature batch", "rows", len(rows))
	return nil
}

func pushError(err error, operation string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryNetwork).
		Context("operation", operation).
		Build()
}

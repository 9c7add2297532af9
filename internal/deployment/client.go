// Package deployment fetches deployment metadata from the feature service
// and resolves recordings to the deployment that was active when they were
// made.
package deployment

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

// featureResponse represents the JSON structure of a feature service query
// response. Only the attribute fields we consume are mapped.
type featureResponse struct {
	Features []struct {
		Attributes struct {
			ObjectID  int    `json:"objectid"`
			Serial    string `json:"serial"`
			StartDate *int64 `json:"start_date"`
			EndDate   *int64 `json:"end_date"`
		} `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client queries the deployment layer of the feature service.
type Client struct {
	endpoint   string
	token      string
	layer      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feature service client from settings. The HTTP client
// uses a 45-second timeout to prevent hanging requests.
func NewClient(settings *conf.Settings) *Client {
	return &Client{
		endpoint:   strings.TrimRight(settings.Export.Endpoint, "/"),
		token:      settings.Export.Token,
		layer:      settings.Export.DeploymentLayer,
		httpClient: &http.Client{Timeout: 45 * time.Second},
		logger:     logging.ForService("deployment"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// FetchDeployments retrieves all deployment intervals from the feature
// service. Start and end dates arrive as epoch milliseconds; a missing end
// date means the deployment is still open.
func (c *Client) FetchDeployments(ctx context.Context) ([]Interval, error) {
	queryURL := fmt.Sprintf("%s/%s/query", c.endpoint, c.layer)

	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("outFields", "objectid,serial,start_date,end_date")
	params.Set("f", "json")
	if c.token != "" {
		params.Set("token", c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, networkError(err, "build_request")
	}

	c.logger.Debug("querying deployment layer", "url", queryURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err, "query_deployments")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, networkError(
			fmt.Errorf("feature service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"query_deployments")
	}

	var decoded featureResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.New(fmt.Errorf("decoding feature service response: %w", err)).
			Component("deployment").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_response").
			Build()
	}
	if decoded.Error != nil {
		return nil, networkError(
			fmt.Errorf("feature service error %d: %s", decoded.Error.Code, decoded.Error.Message),
			"query_deployments")
	}

	intervals := make([]Interval, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		a := f.Attributes
		if a.Serial == "" || a.StartDate == nil {
			c.logger.Warn("skipping deployment with incomplete attributes", "objectid", a.ObjectID)
			continue
		}
		iv := Interval{
			DeploymentID: a.ObjectID,
			Serial:       a.Serial,
			Start:        time.UnixMilli(*a.StartDate).UTC(),
		}
		if a.EndDate != nil {
			end := time.UnixMilli(*a.EndDate).UTC()
			iv.End = &end
		}
		intervals = append(intervals, iv)
	}

	c.logger.Info("fetched deployments", "count", len(intervals))
	return intervals, nil
}

func networkError(err error, operation string) error {
	return errors.New(err).
		Component("deployment").
		Category(errors.CategoryNetwork).
		Context("operation", operation).
		Build()
}

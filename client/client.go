// Package client talks to the similarity-search backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/models"
	"github.com/amirhf/imageSearch/services/search-web/schema"
)

// FailureMessage is shown to the user for every failed search.
const FailureMessage = "failed to retrieve similar images"

const searchPath = "/search"

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client issues exactly one POST per Search call. It never retries.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, logger: logger}
}

// Search sends req as multipart form data and parses the ranked result.
// Transport and body failures carry errs.KindTransport and errs.KindMalformed.
func (c *Client) Search(ctx context.Context, req schema.SearchRequest) (*models.SearchResult, error) {
	const op = "client.Search"

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(req.PayloadMap()).
		Post(searchPath)
	if err != nil {
		c.logger.Warn("search request failed", "image", req.Image().Filename(), "error", err)
		return nil, errs.Wrap(errs.KindTransport, op, FailureMessage, err)
	}
	if !resp.IsSuccess() {
		c.logger.Warn("search backend returned error status",
			"image", req.Image().Filename(),
			"status", resp.StatusCode(),
			"body", truncate(resp.String(), 200))
		return nil, errs.Wrap(errs.KindTransport, op, FailureMessage,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	result, err := decodeResult(resp.Body())
	if err != nil {
		c.logger.Error("search backend returned malformed body",
			"image", req.Image().Filename(),
			"content_type", resp.Header().Get("Content-Type"),
			"error", err)
		return nil, errs.Wrap(errs.KindMalformed, op, FailureMessage, err)
	}

	c.logger.Debug("search completed",
		"image", req.Image().Filename(),
		"results", len(result.SimilarImages),
		"elapsed", resp.Time())
	return result, nil
}

func decodeResult(body []byte) (*models.SearchResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	var raw models.SearchResponse
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &models.SearchResult{}
	if raw.RPCurve != nil {
		result.RPCurve = *raw.RPCurve
	}
	if raw.SimilarImages != nil {
		result.SimilarImages = make([]catalog.ImageID, 0, len(*raw.SimilarImages))
		for _, name := range *raw.SimilarImages {
			id, err := catalog.ParseName(name)
			if err != nil {
				return nil, err
			}
			result.SimilarImages = append(result.SimilarImages, id)
		}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Head("/")
	if err != nil {
		return errs.Wrap(errs.KindTransport, "client.Ping", "search backend unreachable", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return errs.New(errs.KindTransport, "client.Ping", fmt.Sprintf("search backend status %d", resp.StatusCode()))
	}
	return nil
}

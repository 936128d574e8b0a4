package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-resty/resty/v2"
)

// ScraperClient calls the web scraping service.
type ScraperClient struct {
	client *resty.Client
}

// NewScraperClient creates a ScraperClient for the given base URL.
func NewScraperClient(baseURL, apiKey string, timeout time.Duration) *ScraperClient {
	return &ScraperClient{client: newClient(baseURL, apiKey, timeout)}
}

type scrapeRequest struct {
	URL     string         `json:"url"`
	Options map[string]any `json:"options,omitempty"`
}

type scrapeResponse struct {
	Success bool                    `json:"success"`
	Data    models.ExtractedContent `json:"data"`
	Error   string                  `json:"error,omitempty"`
}

// ExtractContent fetches and extracts the main text content of a web page.
func (c *ScraperClient) ExtractContent(ctx context.Context, url string, opts map[string]any) (*models.ExtractedContent, error) {
	var out scrapeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(scrapeRequest{URL: url, Options: opts}).
		SetResult(&out).
		Post("/api/v1/scrape")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("scrape %s: %w: %s", url, ErrRemote, out.Error)
	}
	return &out.Data, nil
}

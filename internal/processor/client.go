// Package processor holds the HTTP clients for the remote processing
// services: the AI manager, the file-processing service, the web scraper, the
// video transcriber, and the async operation services (document conversion,
// content extraction). Each client is a thin wrapper: build a request, call an
// endpoint, map the response into a model or a sentinel error.
package processor

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds a resty client with the shared auth header and timeout.
func newClient(baseURL, apiKey string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return client
}

// checkResponse maps transport failures and HTTP status codes onto the
// package sentinels. A nil return means the response carries a usable body.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode(), resp.String())
	}
	return nil
}

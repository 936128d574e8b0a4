package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-resty/resty/v2"
)

// TranscriberClient calls the video transcription service.
type TranscriberClient struct {
	client *resty.Client
}

// NewTranscriberClient creates a TranscriberClient for the given base URL.
func NewTranscriberClient(baseURL, apiKey string, timeout time.Duration) *TranscriberClient {
	return &TranscriberClient{client: newClient(baseURL, apiKey, timeout)}
}

type transcribeRequest struct {
	URL string `json:"url"`
}

type transcribeResponse struct {
	Success    bool              `json:"success"`
	Transcript models.Transcript `json:"transcript"`
	Error      string            `json:"error,omitempty"`
}

// Transcribe fetches the transcript of a video URL.
func (c *TranscriberClient) Transcribe(ctx context.Context, url string) (*models.Transcript, error) {
	var out transcribeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(transcribeRequest{URL: url}).
		SetResult(&out).
		Post("/api/v1/transcribe")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", url, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("transcribe %s: %w: %s", url, ErrRemote, out.Error)
	}
	return &out.Transcript, nil
}

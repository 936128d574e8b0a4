package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-resty/resty/v2"
)

// OperationClient talks to the services that run their own asynchronous jobs:
// document conversion and content extraction. Starting an operation yields a
// remote operation id which the pipeline polls until completion.
type OperationClient struct {
	client *resty.Client
}

// NewOperationClient creates an OperationClient for the given base URL.
func NewOperationClient(baseURL, apiKey string, timeout time.Duration) *OperationClient {
	return &OperationClient{client: newClient(baseURL, apiKey, timeout)}
}

type startOperationRequest struct {
	SourceURL  string         `json:"source_url,omitempty"`
	FileID     string         `json:"file_id,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

type startOperationResponse struct {
	JobID string `json:"job_id"`
	Error string `json:"error,omitempty"`
}

// StartOperation kicks off a remote async operation and returns its id.
func (c *OperationClient) StartOperation(ctx context.Context, input models.JobInput, opts map[string]any) (string, error) {
	req := startOperationRequest{
		SourceURL: input.URL,
		FileID:    input.FileID,
		Options:   opts,
	}
	if target, ok := opts["target_format"].(string); ok {
		req.TargetType = target
	}

	var out startOperationResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/v1/operations")
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("start operation: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("start operation: %w: no job id in response: %s", ErrRemote, out.Error)
	}
	return out.JobID, nil
}

// CheckStatus polls the remote operation once.
func (c *OperationClient) CheckStatus(ctx context.Context, operationID string) (*models.OperationStatus, error) {
	var out models.OperationStatus
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/operations/" + operationID)
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("check operation %s: %w", operationID, err)
	}
	return &out, nil
}

// GetResult fetches the final payload of a completed remote operation.
func (c *OperationClient) GetResult(ctx context.Context, operationID string) (*models.OperationResult, error) {
	var out models.OperationResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/operations/" + operationID + "/result")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("get operation result %s: %w", operationID, err)
	}
	return &out, nil
}

package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-resty/resty/v2"
)

// FileClient calls the file management service: uploading sources and running
// the generic file-processing operation keyed by tool type.
type FileClient struct {
	client *resty.Client
}

// NewFileClient creates a FileClient for the given base URL.
func NewFileClient(baseURL, apiKey string, timeout time.Duration) *FileClient {
	return &FileClient{client: newClient(baseURL, apiKey, timeout)}
}

type processFileRequest struct {
	FileID   string         `json:"file_id"`
	ToolType string         `json:"tool_type"`
	Options  map[string]any `json:"options,omitempty"`
}

type processFileResponse struct {
	Success bool            `json:"success"`
	Result  map[string]any  `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Meta    processFileMeta `json:"metadata"`
}

type processFileMeta struct {
	TokensUsed int     `json:"tokens_used"`
	Confidence float64 `json:"confidence"`
	FileType   string  `json:"file_type"`
}

// ProcessFile runs the remote file-processing operation for an uploaded file.
func (c *FileClient) ProcessFile(ctx context.Context, fileID string, toolType models.ToolType, opts map[string]any) (*models.FileResult, error) {
	var out processFileResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(processFileRequest{FileID: fileID, ToolType: string(toolType), Options: opts}).
		SetResult(&out).
		Post("/api/v1/files/process")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("process file %s: %w", fileID, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("process file %s: %w: %s", fileID, ErrRemote, out.Error)
	}
	return &models.FileResult{
		Result:     out.Result,
		TokensUsed: out.Meta.TokensUsed,
		Confidence: out.Meta.Confidence,
		FileType:   out.Meta.FileType,
	}, nil
}

type uploadRequest struct {
	FileName string `json:"file_name"`
	Source   string `json:"source"`
}

type uploadResponse struct {
	FileID string `json:"file_id"`
}

// Upload registers a new source with the file service and returns its file id.
func (c *FileClient) Upload(ctx context.Context, fileName, source string) (string, error) {
	var out uploadResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(uploadRequest{FileName: fileName, Source: source}).
		SetResult(&out).
		Post("/api/v1/files")
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}
	if out.FileID == "" {
		return "", fmt.Errorf("upload %s: %w: no file id in response", fileName, ErrRemote)
	}
	return out.FileID, nil
}

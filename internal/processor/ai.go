package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// AIClient calls the AI manager service for summarization, math solving,
// flashcard generation, and presentation outlines.
type AIClient struct {
	client *resty.Client
}

// NewAIClient creates an AIClient for the given base URL.
func NewAIClient(baseURL, apiKey string, timeout time.Duration) *AIClient {
	return &AIClient{client: newClient(baseURL, apiKey, timeout)}
}

type summarizeRequest struct {
	Text    string         `json:"text"`
	Options map[string]any `json:"options,omitempty"`
}

func (c *AIClient) Summarize(ctx context.Context, text string, opts map[string]any) (*models.SummarizeResult, error) {
	var out models.SummarizeResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(summarizeRequest{Text: text, Options: opts}).
		SetResult(&out).
		Post("/api/v1/summarize")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return &out, nil
}

type mathRequest struct {
	Problem string    `json:"problem"`
	FileID  string    `json:"file_id,omitempty"`
	UserID  uuid.UUID `json:"user_id,omitempty"`
}

func (c *AIClient) SolveMathProblem(ctx context.Context, problem, fileID string, userID uuid.UUID) (*models.MathSolution, error) {
	var out models.MathSolution
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(mathRequest{Problem: problem, FileID: fileID, UserID: userID}).
		SetResult(&out).
		Post("/api/v1/math/solve")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("solve math problem: %w", err)
	}
	return &out, nil
}

type flashcardsRequest struct {
	Text    string         `json:"text"`
	Count   int            `json:"count"`
	Options map[string]any `json:"options,omitempty"`
}

func (c *AIClient) GenerateFlashcards(ctx context.Context, text string, count int, opts map[string]any) (*models.FlashcardSet, error) {
	var out models.FlashcardSet
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(flashcardsRequest{Text: text, Count: count, Options: opts}).
		SetResult(&out).
		Post("/api/v1/flashcards/generate")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	return &out, nil
}

type outlineRequest struct {
	Topic  string    `json:"topic"`
	UserID uuid.UUID `json:"user_id,omitempty"`
}

func (c *AIClient) GenerateOutline(ctx context.Context, topic string, userID uuid.UUID) (*models.Outline, error) {
	var out models.Outline
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(outlineRequest{Topic: topic, UserID: userID}).
		SetResult(&out).
		Post("/api/v1/presentations/outline")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("generate outline: %w", err)
	}
	return &out, nil
}

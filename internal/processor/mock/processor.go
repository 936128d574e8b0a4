// Package mock provides configurable in-memory processors for testing the
// pipeline without any remote services.
package mock

import (
	"context"

	"github.com/dkathuria/taskpipe/internal/pipeline"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

// AI satisfies pipeline.AIProcessor.
type AI struct {
	SummarizeFunc  func(ctx context.Context, text string, opts map[string]any) (*models.SummarizeResult, error)
	SolveFunc      func(ctx context.Context, problem, fileID string, userID uuid.UUID) (*models.MathSolution, error)
	FlashcardsFunc func(ctx context.Context, text string, count int, opts map[string]any) (*models.FlashcardSet, error)
	OutlineFunc    func(ctx context.Context, topic string, userID uuid.UUID) (*models.Outline, error)
}

func (m *AI) Summarize(ctx context.Context, text string, opts map[string]any) (*models.SummarizeResult, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, opts)
	}
	return &models.SummarizeResult{
		Insights:        []string{"mock insight"},
		Summary:         "mock summary",
		ConfidenceScore: 0.9,
		TokensUsed:      100,
	}, nil
}

func (m *AI) SolveMathProblem(ctx context.Context, problem, fileID string, userID uuid.UUID) (*models.MathSolution, error) {
	if m.SolveFunc != nil {
		return m.SolveFunc(ctx, problem, fileID, userID)
	}
	return &models.MathSolution{Solution: "mock solution", Steps: []string{"step 1"}, TokensUsed: 50}, nil
}

func (m *AI) GenerateFlashcards(ctx context.Context, text string, count int, opts map[string]any) (*models.FlashcardSet, error) {
	if m.FlashcardsFunc != nil {
		return m.FlashcardsFunc(ctx, text, count, opts)
	}
	cards := make([]models.Flashcard, count)
	for i := range cards {
		cards[i] = models.Flashcard{Question: "q", Answer: "a"}
	}
	return &models.FlashcardSet{Flashcards: cards, TokensUsed: 80}, nil
}

func (m *AI) GenerateOutline(ctx context.Context, topic string, userID uuid.UUID) (*models.Outline, error) {
	if m.OutlineFunc != nil {
		return m.OutlineFunc(ctx, topic, userID)
	}
	return &models.Outline{Title: topic, Slides: []string{"intro", "body", "close"}, TokensUsed: 60}, nil
}

// Files satisfies pipeline.FileProcessor.
type Files struct {
	ProcessFileFunc func(ctx context.Context, fileID string, toolType models.ToolType, opts map[string]any) (*models.FileResult, error)
	UploadFunc      func(ctx context.Context, fileName, source string) (string, error)
}

func (m *Files) ProcessFile(ctx context.Context, fileID string, toolType models.ToolType, opts map[string]any) (*models.FileResult, error) {
	if m.ProcessFileFunc != nil {
		return m.ProcessFileFunc(ctx, fileID, toolType, opts)
	}
	return &models.FileResult{
		Result:     map[string]any{"text": "mock extracted text"},
		TokensUsed: 200,
		Confidence: 0.8,
		FileType:   "pdf",
	}, nil
}

func (m *Files) Upload(ctx context.Context, fileName, source string) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, fileName, source)
	}
	return "mock-file-id", nil
}

// Scraper satisfies pipeline.ContentExtractor.
type Scraper struct {
	ExtractFunc func(ctx context.Context, url string, opts map[string]any) (*models.ExtractedContent, error)
}

func (m *Scraper) ExtractContent(ctx context.Context, url string, opts map[string]any) (*models.ExtractedContent, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, url, opts)
	}
	return &models.ExtractedContent{Text: "mock page text"}, nil
}

// Transcriber satisfies pipeline.Transcriber.
type Transcriber struct {
	TranscribeFunc func(ctx context.Context, url string) (*models.Transcript, error)
}

func (m *Transcriber) Transcribe(ctx context.Context, url string) (*models.Transcript, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, url)
	}
	return &models.Transcript{Text: "mock transcript", Duration: 90}, nil
}

// Operator satisfies pipeline.AsyncOperator.
type Operator struct {
	StartFunc  func(ctx context.Context, input models.JobInput, opts map[string]any) (string, error)
	StatusFunc func(ctx context.Context, operationID string) (*models.OperationStatus, error)
	ResultFunc func(ctx context.Context, operationID string) (*models.OperationResult, error)
}

func (m *Operator) StartOperation(ctx context.Context, input models.JobInput, opts map[string]any) (string, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, input, opts)
	}
	return "mock-operation", nil
}

func (m *Operator) CheckStatus(ctx context.Context, operationID string) (*models.OperationStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, operationID)
	}
	return &models.OperationStatus{OperationID: operationID, Status: models.OperationCompleted}, nil
}

func (m *Operator) GetResult(ctx context.Context, operationID string) (*models.OperationResult, error) {
	if m.ResultFunc != nil {
		return m.ResultFunc(ctx, operationID)
	}
	return &models.OperationResult{Status: models.OperationCompleted, Content: "mock content"}, nil
}

// NewProcessors returns a full set of mocks with sensible defaults.
func NewProcessors() pipeline.Processors {
	return pipeline.Processors{
		AI:          &AI{},
		Files:       &Files{},
		Scraper:     &Scraper{},
		Transcriber: &Transcriber{},
		Converter:   &Operator{},
		Extractor:   &Operator{},
	}
}

// Compile-time interface checks.
var (
	_ pipeline.AIProcessor      = (*AI)(nil)
	_ pipeline.FileProcessor    = (*Files)(nil)
	_ pipeline.ContentExtractor = (*Scraper)(nil)
	_ pipeline.Transcriber      = (*Transcriber)(nil)
	_ pipeline.AsyncOperator    = (*Operator)(nil)
)

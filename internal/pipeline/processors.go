package pipeline

import (
	"context"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

// The executor never talks to a remote service directly; everything goes
// through these interfaces so tests and alternate deployments can swap the
// collaborators out.

// AIProcessor covers the AI manager service.
type AIProcessor interface {
	Summarize(ctx context.Context, text string, opts map[string]any) (*models.SummarizeResult, error)
	SolveMathProblem(ctx context.Context, problem, fileID string, userID uuid.UUID) (*models.MathSolution, error)
	GenerateFlashcards(ctx context.Context, text string, count int, opts map[string]any) (*models.FlashcardSet, error)
	GenerateOutline(ctx context.Context, topic string, userID uuid.UUID) (*models.Outline, error)
}

// FileProcessor covers the file management service.
type FileProcessor interface {
	ProcessFile(ctx context.Context, fileID string, toolType models.ToolType, opts map[string]any) (*models.FileResult, error)
	Upload(ctx context.Context, fileName, source string) (string, error)
}

// ContentExtractor covers the web scraping service.
type ContentExtractor interface {
	ExtractContent(ctx context.Context, url string, opts map[string]any) (*models.ExtractedContent, error)
}

// Transcriber covers the video transcription service.
type Transcriber interface {
	Transcribe(ctx context.Context, url string) (*models.Transcript, error)
}

// AsyncOperator covers services that run their own async jobs (document
// conversion, content extraction): start an operation, poll it, fetch the
// result.
type AsyncOperator interface {
	StartOperation(ctx context.Context, input models.JobInput, opts map[string]any) (string, error)
	CheckStatus(ctx context.Context, operationID string) (*models.OperationStatus, error)
	GetResult(ctx context.Context, operationID string) (*models.OperationResult, error)
}

// Processors bundles every remote collaborator the executor dispatches to.
type Processors struct {
	AI          AIProcessor
	Files       FileProcessor
	Scraper     ContentExtractor
	Transcriber Transcriber
	Converter   AsyncOperator
	Extractor   AsyncOperator
}

// Archiver persists terminal job records durably. Archiving is best-effort;
// the pipeline logs failures and moves on.
type Archiver interface {
	ArchiveJob(ctx context.Context, rec *models.ArchivedJob) error
}

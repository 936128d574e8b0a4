package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dkathuria/taskpipe/pkg/models"
)

// summarize handles the summarize tool. Inline text goes straight to AI
// summarization; links branch into transcription (video hosts) or scraping;
// file-backed content delegates to the generic file processor.
func (r *run) summarize(ctx context.Context) (map[string]any, error) {
	in := r.job.Input
	r.stage(ctx, StageAnalyzingContent, 10, "analyzing input content")

	var text string
	switch in.ContentType {
	case models.ContentTypeText:
		if strings.TrimSpace(in.Text) == "" {
			return nil, fmt.Errorf("%w: text content is empty", ErrValidation)
		}
		r.stage(ctx, StageProcessingText, 30, "processing inline text")
		text = in.Text
		r.meta.TokensUsed = estimateTokens(text)

	case models.ContentTypeLink:
		if in.URL == "" {
			return nil, fmt.Errorf("%w: url is required for link content", ErrValidation)
		}
		if isVideoURL(in.URL) {
			r.stage(ctx, StageProcessingVideo, 20, "processing video link")
			r.stage(ctx, StageTranscribing, 40, "transcribing video")
			tr, err := r.exec.procs.Transcriber.Transcribe(ctx, in.URL)
			if err != nil {
				return nil, fmt.Errorf("transcribe video: %w", err)
			}
			text = tr.Text
		} else {
			r.stage(ctx, StageScrapingContent, 30, "scraping page content")
			extracted, err := r.exec.procs.Scraper.ExtractContent(ctx, in.URL, r.job.Options)
			if err != nil {
				return nil, fmt.Errorf("scrape content: %w", err)
			}
			// An empty scrape is a job failure, not a retry.
			if strings.TrimSpace(extracted.Text) == "" {
				return nil, fmt.Errorf("no content extracted from %s", in.URL)
			}
			text = extracted.Text
		}
		r.meta.TokensUsed = estimateTokens(text)

	default: // pdf, image, audio, video
		if in.FileID == "" {
			return nil, fmt.Errorf("%w: file_id is required for %s content", ErrValidation, in.ContentType)
		}
		r.stage(ctx, StageProcessingFile, 20, "processing uploaded file")
		r.stage(ctx, StageExtractingContent, 40, "extracting file content")
		fr, err := r.exec.procs.Files.ProcessFile(ctx, in.FileID, models.ToolSummarize, r.job.Options)
		if err != nil {
			return nil, fmt.Errorf("process file: %w", err)
		}
		r.meta.TokensUsed = fr.TokensUsed
		r.meta.ConfidenceScore = fr.Confidence
		r.meta.FileCount = 1
		r.stage(ctx, StageAIProcessing, 70, "summarizing extracted content")
		r.stage(ctx, StageFinalizing, 90, "finalizing summary")
		return fr.Result, nil
	}

	r.stage(ctx, StageAIProcessing, 60, "running AI summarization")
	res, err := r.exec.procs.AI.Summarize(ctx, text, r.job.Options)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	r.meta.ConfidenceScore = res.ConfidenceScore

	r.stage(ctx, StageFinalizing, 90, "finalizing summary")
	return map[string]any{
		"insights": res.Insights,
		"summary":  res.Summary,
	}, nil
}

// solveMath handles the math tool: an attached file means an image of the
// problem, otherwise the problem is inline text.
func (r *run) solveMath(ctx context.Context) (map[string]any, error) {
	in := r.job.Input
	if in.FileID != "" {
		r.stage(ctx, StageProcessingImage, 30, "processing problem image")
	} else {
		if strings.TrimSpace(in.Text) == "" {
			return nil, fmt.Errorf("%w: math problem text or file_id is required", ErrValidation)
		}
		r.stage(ctx, StageSolvingProblem, 30, "solving problem")
	}

	sol, err := r.exec.procs.AI.SolveMathProblem(ctx, in.Text, in.FileID, r.job.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("solve math problem: %w", err)
	}
	r.meta.TokensUsed = sol.TokensUsed

	r.stage(ctx, StageFinalizing, 90, "finalizing solution")
	return map[string]any{
		"solution": sol.Solution,
		"steps":    sol.Steps,
	}, nil
}

func (r *run) generateFlashcards(ctx context.Context) (map[string]any, error) {
	in := r.job.Input
	if in.FileID != "" {
		fr, err := r.processToolFile(ctx, models.ToolFlashcards)
		if err != nil {
			return nil, err
		}
		r.meta.FlashcardCount = countItems(fr.Result, "flashcards")
		r.stage(ctx, StageFinalizing, 90, "finalizing flashcards")
		return fr.Result, nil
	}

	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: flashcards require text or a file_id", ErrValidation)
	}
	r.stage(ctx, StageGeneratingCards, 40, "generating flashcards")
	count := intOption(r.job.Options, "count", 10)
	set, err := r.exec.procs.AI.GenerateFlashcards(ctx, in.Text, count, r.job.Options)
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	r.meta.FlashcardCount = len(set.Flashcards)
	r.meta.TokensUsed = set.TokensUsed

	r.stage(ctx, StageFinalizing, 90, "finalizing flashcards")
	return map[string]any{"flashcards": set.Flashcards}, nil
}

func (r *run) generatePresentation(ctx context.Context) (map[string]any, error) {
	in := r.job.Input
	if in.FileID != "" {
		fr, err := r.processToolFile(ctx, models.ToolPresentations)
		if err != nil {
			return nil, err
		}
		r.meta.SlideCount = countItems(fr.Result, "slides")
		r.stage(ctx, StageFinalizing, 90, "finalizing presentation")
		return fr.Result, nil
	}

	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: presentations require a topic or a file_id", ErrValidation)
	}
	r.stage(ctx, StageGeneratingOutline, 40, "generating presentation outline")
	outline, err := r.exec.procs.AI.GenerateOutline(ctx, in.Text, r.job.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("generate outline: %w", err)
	}
	r.meta.SlideCount = len(outline.Slides)
	r.meta.TokensUsed = outline.TokensUsed

	r.stage(ctx, StageFinalizing, 90, "finalizing presentation")
	return map[string]any{
		"title":  outline.Title,
		"slides": outline.Slides,
	}, nil
}

// documentChat requires an uploaded document. The missing-file check runs
// before any stage transition: the job fails with no remote call attempted.
func (r *run) documentChat(ctx context.Context) (map[string]any, error) {
	if r.job.Input.FileID == "" {
		return nil, fmt.Errorf("%w: document_chat requires a file_id", ErrValidation)
	}
	fr, err := r.processToolFile(ctx, models.ToolDocumentChat)
	if err != nil {
		return nil, err
	}
	r.stage(ctx, StageFinalizing, 90, "finalizing document index")
	return fr.Result, nil
}

// processToolFile runs the generic file-processing collaborator for the given
// tool type and folds its counters into the job metadata.
func (r *run) processToolFile(ctx context.Context, tool models.ToolType) (*models.FileResult, error) {
	r.stage(ctx, StageProcessingFile, 30, "processing uploaded file")
	fr, err := r.exec.procs.Files.ProcessFile(ctx, r.job.Input.FileID, tool, r.job.Options)
	if err != nil {
		return nil, fmt.Errorf("process file: %w", err)
	}
	r.meta.TokensUsed = fr.TokensUsed
	r.meta.ConfidenceScore = fr.Confidence
	r.meta.FileCount = 1
	return fr, nil
}

// estimateTokens approximates token usage for inline text at four characters
// per token, rounded.
func estimateTokens(text string) int {
	return (len(text) + 2) / 4
}

// isVideoURL matches the video hosts whose links are transcribed rather than
// scraped.
func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be":
		return true
	}
	return false
}

func intOption(opts map[string]any, key string, fallback int) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func countItems(result map[string]any, key string) int {
	items, ok := result[key].([]any)
	if !ok {
		return 0
	}
	return len(items)
}

package models

// Result shapes returned by the remote processing services. The pipeline treats
// every service as a black box behind an interface; these are the payloads that
// cross that boundary.

// SummarizeResult is the output of AI summarization.
type SummarizeResult struct {
	Insights        []string `json:"insights"`
	Summary         string   `json:"summary"`
	ConfidenceScore float64  `json:"confidence_score"`
	TokensUsed      int      `json:"tokens_used"`
}

// MathSolution is the output of the math solver.
type MathSolution struct {
	Solution   string   `json:"solution"`
	Steps      []string `json:"steps,omitempty"`
	TokensUsed int      `json:"tokens_used"`
}

// Flashcard is one generated question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FlashcardSet is the output of flashcard generation.
type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
	TokensUsed int         `json:"tokens_used"`
}

// Outline is the output of presentation outline generation.
type Outline struct {
	Title      string   `json:"title"`
	Slides     []string `json:"slides"`
	TokensUsed int      `json:"tokens_used"`
}

// FileResult is the output of the generic file-processing service, keyed by
// tool type.
type FileResult struct {
	Result     map[string]any `json:"result"`
	TokensUsed int            `json:"tokens_used"`
	Confidence float64        `json:"confidence"`
	FileType   string         `json:"file_type"`
}

// ExtractedContent is the output of web scraping.
type ExtractedContent struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Transcript is the output of video transcription.
type Transcript struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration,omitempty"`
}

// Remote operation statuses reported by the nested async services
// (document conversion, content extraction).
const (
	OperationPending    = "pending"
	OperationProcessing = "processing"
	OperationCompleted  = "completed"
	OperationFailed     = "failed"
)

// OperationStatus is one poll response for a nested remote operation.
type OperationStatus struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// OperationResult is the final payload of a completed remote operation.
type OperationResult struct {
	Status    string         `json:"status"`
	Content   string         `json:"content,omitempty"`
	FilePaths []string       `json:"file_paths,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

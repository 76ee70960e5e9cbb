package models

import "time"

type ExtractionStatus string

const (
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionReady      ExtractionStatus = "ready"
	ExtractionError      ExtractionStatus = "error"
)

type QuizStatus string

const (
	QuizGenerating QuizStatus = "generating"
	QuizReady      QuizStatus = "ready"
	QuizFailed     QuizStatus = "failed"
)

// ContentType tags an uploaded file with its extraction strategy.
// The set is closed; new formats extend the tag set, not a type tree.
type ContentType string

const (
	ContentPDF      ContentType = "pdf"
	ContentImage    ContentType = "image"
	ContentText     ContentType = "text"
	ContentMarkdown ContentType = "markdown"
	ContentHTML     ContentType = "html"
	ContentDocx     ContentType = "docx"
	ContentPptx     ContentType = "pptx"
	ContentXlsx     ContentType = "xlsx"
)

// ExtractedContent is a work item on the extraction queue. The row is the
// queue entry; the optional AgentRun back-reference tracks the AI-call
// lifecycle separately.
type ExtractedContent struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	NoteID       string           `db:"note_id" json:"note_id"`
	FileName     string           `db:"file_name" json:"file_name"`
	ContentType  ContentType      `db:"content_type" json:"content_type"`
	BlobPath     string           `db:"blob_path" json:"blob_path"`
	Status       ExtractionStatus `db:"status" json:"status"`
	Text         *string          `db:"text" json:"text,omitempty"`
	ErrorMessage *string          `db:"error_message" json:"error_message,omitempty"`
	AgentRunID   *string          `db:"agent_run_id" json:"agent_run_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// PendingQuiz is a work item on the quiz-generation queue.
type PendingQuiz struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	NoteID        string     `db:"note_id" json:"note_id"`
	QuestionCount int        `db:"question_count" json:"question_count"`
	Difficulty    string     `db:"difficulty" json:"difficulty"`
	Status        QuizStatus `db:"status" json:"status"`
	Payload       *string    `db:"payload" json:"payload,omitempty"`
	ErrorMessage  *string    `db:"error_message" json:"error_message,omitempty"`
	AgentRunID    *string    `db:"agent_run_id" json:"agent_run_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

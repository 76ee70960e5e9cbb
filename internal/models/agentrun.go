package models

import "time"

type RunType string

const (
	RunExtraction     RunType = "extraction"
	RunQuizGeneration RunType = "quiz_generation"
	RunGrading        RunType = "grading"
	RunAnalytics      RunType = "analytics"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AgentRun tracks one asynchronous AI-backed job. Terminal states are
// final in the sense that retries create a fresh run rather than
// rewriting this one; the transitions themselves are plain status
// overwrites (last write wins).
type AgentRun struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	RunType       RunType    `db:"run_type" json:"run_type"`
	Status        RunStatus  `db:"status" json:"status"`
	InputHash     string     `db:"input_hash" json:"input_hash"`
	CorrelationID string     `db:"correlation_id" json:"correlation_id"`
	Model         *string    `db:"model" json:"model,omitempty"`
	Output        *string    `db:"output" json:"output,omitempty"`
	ErrorMessage  *string    `db:"error_message" json:"error_message,omitempty"`
	PromptTokens  int        `db:"prompt_tokens" json:"prompt_tokens"`
	OutputTokens  int        `db:"output_tokens" json:"output_tokens"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	StartedAt     *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

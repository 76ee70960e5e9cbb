// Package agentrun records the lifecycle of asynchronous AI-backed jobs.
// A run moves pending -> running -> completed/failed. Transitions are
// plain status overwrites with no precondition on the current status:
// concurrent writers resolve by last write wins, and marking a deleted
// run is a no-op.
package agentrun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/models"
)

type Tracker struct {
	db *sqlx.DB
}

func NewTracker(db *sqlx.DB) *Tracker {
	return &Tracker{db: db}
}

// DB exposes the backing handle for callers creating runs outside a
// transaction of their own.
func (t *Tracker) DB() *sqlx.DB {
	return t.db
}

// CreateOptions carries the optional fields of a new run.
type CreateOptions struct {
	InputHash     string
	CorrelationID string
}

// Create inserts a pending run on the caller's transaction (or the bare
// DB) so the run row commits atomically with the queue row that
// references it.
func (t *Tracker) Create(ctx context.Context, ext sqlx.ExtContext, userID string, runType models.RunType, opts CreateOptions) (*models.AgentRun, error) {
	run := &models.AgentRun{
		ID:            uuid.NewString(),
		UserID:        userID,
		RunType:       runType,
		Status:        models.RunPending,
		InputHash:     opts.InputHash,
		CorrelationID: opts.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}
	if run.CorrelationID == "" {
		run.CorrelationID = uuid.NewString()
	}

	_, err := ext.ExecContext(ctx, `
		INSERT INTO agent_runs (id, user_id, run_type, status, input_hash, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.UserID, run.RunType, run.Status, run.InputHash, run.CorrelationID, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create agent run: %w", err)
	}
	return run, nil
}

// MarkRunning stamps started_at and records which model is serving the
// run.
func (t *Tracker) MarkRunning(ctx context.Context, runID, model string) error {
	_, err := t.db.ExecContext(ctx, `
		UPDATE agent_runs SET status = $1, model = $2, started_at = $3
		WHERE id = $4`,
		models.RunRunning, model, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return nil
}

// MarkCompleted stores the run's output and token usage. A nil usage
// leaves the counters at zero.
func (t *Tracker) MarkCompleted(ctx context.Context, runID, output string, usage *ai.Response) error {
	var promptTokens, outputTokens int
	var model *string
	if usage != nil {
		promptTokens = usage.PromptTokens
		outputTokens = usage.OutputTokens
		if usage.Model != "" {
			model = &usage.Model
		}
	}
	_, err := t.db.ExecContext(ctx, `
		UPDATE agent_runs
		SET status = $1, output = $2, prompt_tokens = $3, output_tokens = $4,
		    model = COALESCE($5, model), completed_at = $6
		WHERE id = $7`,
		models.RunCompleted, output, promptTokens, outputTokens, model, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	return nil
}

func (t *Tracker) MarkFailed(ctx context.Context, runID, errMsg string) error {
	_, err := t.db.ExecContext(ctx, `
		UPDATE agent_runs SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4`,
		models.RunFailed, errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}

// Get returns a run scoped to its owner.
func (t *Tracker) Get(ctx context.Context, userID, runID string) (*models.AgentRun, error) {
	var run models.AgentRun
	err := t.db.GetContext(ctx, &run, `
		SELECT * FROM agent_runs WHERE id = $1 AND user_id = $2`,
		runID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get agent run: %w", err)
	}
	return &run, nil
}

// ListRecent returns the user's newest runs for status surfaces.
func (t *Tracker) ListRecent(ctx context.Context, userID string, limit int) ([]models.AgentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []models.AgentRun{}
	err := t.db.SelectContext(ctx, &runs, `
		SELECT * FROM agent_runs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list agent runs: %w", err)
	}
	return runs, nil
}

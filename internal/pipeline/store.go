package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/extraction"
	"github.com/studyloop/engine/internal/models"
)

// Store owns the two work queues. A queue item is just a row; "awaiting
// work" is the pre-terminal status, claimed oldest first.
type Store struct {
	db   *sqlx.DB
	runs *agentrun.Tracker
}

func NewStore(db *sqlx.DB, runs *agentrun.Tracker) *Store {
	return &Store{db: db, runs: runs}
}

// InputHash fingerprints a job's input for dedup inspection on the run
// record.
func InputHash(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ── Extraction queue ──

// EnqueueExtraction creates the queue row and its pending AgentRun in
// one transaction, so a caller polling the run id never sees a job that
// does not exist. Processing happens exclusively in the worker loop.
func (s *Store) EnqueueExtraction(ctx context.Context, userID, noteID, fileName, mimeType, blobPath string) (*models.ExtractedContent, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue: %w", err)
	}
	defer tx.Rollback()

	run, err := s.runs.Create(ctx, tx, userID, models.RunExtraction, agentrun.CreateOptions{
		InputHash: InputHash(noteID, blobPath),
	})
	if err != nil {
		return nil, err
	}

	item := &models.ExtractedContent{
		ID:          uuid.NewString(),
		UserID:      userID,
		NoteID:      noteID,
		FileName:    fileName,
		ContentType: extraction.Detect(fileName, mimeType),
		BlobPath:    blobPath,
		Status:      models.ExtractionProcessing,
		AgentRunID:  &run.ID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO extracted_contents (id, user_id, note_id, file_name, content_type, blob_path, status, agent_run_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.UserID, item.NoteID, item.FileName, item.ContentType,
		item.BlobPath, item.Status, item.AgentRunID, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue extraction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}
	return item, nil
}

func (s *Store) ListPendingExtractions(ctx context.Context, batch int) ([]models.ExtractedContent, error) {
	items := []models.ExtractedContent{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM extracted_contents
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		models.ExtractionProcessing, batch,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending extractions: %w", err)
	}
	return items, nil
}

func (s *Store) CompleteExtraction(ctx context.Context, id, text string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE extracted_contents SET status = $1, text = $2, completed_at = $3
		WHERE id = $4`,
		models.ExtractionReady, text, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete extraction: %w", err)
	}
	return nil
}

func (s *Store) FailExtraction(ctx context.Context, id, message string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE extracted_contents SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4`,
		models.ExtractionError, message, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail extraction: %w", err)
	}
	return nil
}

// NoteText concatenates the ready extractions for a note, oldest first.
func (s *Store) NoteText(ctx context.Context, noteID string) (string, error) {
	texts := []string{}
	err := s.db.SelectContext(ctx, &texts, `
		SELECT text FROM extracted_contents
		WHERE note_id = $1 AND status = $2 AND text IS NOT NULL
		ORDER BY created_at ASC`,
		noteID, models.ExtractionReady,
	)
	if err != nil {
		return "", fmt.Errorf("collect note text: %w", err)
	}
	var combined string
	for i, text := range texts {
		if i > 0 {
			combined += "\n\n"
		}
		combined += text
	}
	return combined, nil
}

// ── Quiz queue ──

// InsertQuizTx inserts a generating quiz row on the caller's
// transaction; the selector commits it together with the AgentRun.
func (s *Store) InsertQuizTx(ctx context.Context, ext sqlx.ExtContext, quiz *models.PendingQuiz) error {
	_, err := ext.ExecContext(ctx, `
		INSERT INTO pending_quizzes (id, user_id, note_id, question_count, difficulty, status, agent_run_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		quiz.ID, quiz.UserID, quiz.NoteID, quiz.QuestionCount, quiz.Difficulty,
		quiz.Status, quiz.AgentRunID, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue quiz: %w", err)
	}
	return nil
}

func (s *Store) ListPendingQuizzes(ctx context.Context, batch int) ([]models.PendingQuiz, error) {
	quizzes := []models.PendingQuiz{}
	err := s.db.SelectContext(ctx, &quizzes, `
		SELECT * FROM pending_quizzes
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		models.QuizGenerating, batch,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *Store) CompleteQuiz(ctx context.Context, id, payload string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_quizzes SET status = $1, payload = $2, completed_at = $3
		WHERE id = $4`,
		models.QuizReady, payload, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete quiz: %w", err)
	}
	return nil
}

func (s *Store) FailQuiz(ctx context.Context, id, message string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_quizzes SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4`,
		models.QuizFailed, message, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail quiz: %w", err)
	}
	return nil
}

// GetQuiz returns one quiz scoped to its owner, for result polling.
func (s *Store) GetQuiz(ctx context.Context, userID, id string) (*models.PendingQuiz, error) {
	var quiz models.PendingQuiz
	err := s.db.GetContext(ctx, &quiz, `
		SELECT * FROM pending_quizzes WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return &quiz, nil
}

// ── Operator visibility ──

// ListStaleExtractions surfaces items stuck in Processing longer than
// the cutoff. There is no automatic requeue; a stuck item means a
// worker died mid-flight and an operator decides what to do.
func (s *Store) ListStaleExtractions(ctx context.Context, olderThan time.Time) ([]models.ExtractedContent, error) {
	items := []models.ExtractedContent{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM extracted_contents
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`,
		models.ExtractionProcessing, olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale extractions: %w", err)
	}
	return items, nil
}

func (s *Store) ListStaleQuizzes(ctx context.Context, olderThan time.Time) ([]models.PendingQuiz, error) {
	quizzes := []models.PendingQuiz{}
	err := s.db.SelectContext(ctx, &quizzes, `
		SELECT * FROM pending_quizzes
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`,
		models.QuizGenerating, olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale quizzes: %w", err)
	}
	return quizzes, nil
}

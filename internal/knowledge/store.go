package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/models"
)

// Store owns persistence for knowledge states and the append-only
// interaction log.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// getOrCreateStateTx fetches the (user, topic) state, inserting the
// neutral-defaults row first if it does not exist. Runs on the caller's
// transaction; the UNIQUE(user_id, topic) constraint plus DO NOTHING
// keeps concurrent first touches down to a single row.
func (s *Store) getOrCreateStateTx(ctx context.Context, tx *sqlx.Tx, userID, topic string, sourceNoteID *string, now time.Time) (*models.KnowledgeState, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO knowledge_states (id, user_id, topic, source_note_id, mastery_score, confidence_score, forgetting_risk, mistake_patterns, updated_at)
		VALUES ($1, $2, $3, $4, 0.5, 0.5, 0.5, '{}', $5)
		ON CONFLICT (user_id, topic) DO NOTHING`,
		uuid.NewString(), userID, topic, sourceNoteID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create knowledge state: %w", err)
	}

	var state models.KnowledgeState
	err = tx.GetContext(ctx, &state, `
		SELECT * FROM knowledge_states WHERE user_id = $1 AND topic = $2`,
		userID, topic,
	)
	if err != nil {
		return nil, fmt.Errorf("get knowledge state: %w", err)
	}
	return &state, nil
}

func (s *Store) updateStateTx(ctx context.Context, tx *sqlx.Tx, state *models.KnowledgeState) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE knowledge_states
		SET mastery_score = $1, confidence_score = $2, forgetting_risk = $3,
		    last_reviewed_at = $4, next_review_at = $5, mistake_patterns = $6, updated_at = $7
		WHERE id = $8`,
		state.MasteryScore, state.ConfidenceScore, state.ForgettingRisk,
		state.LastReviewedAt, state.NextReviewAt, state.MistakePatterns, state.UpdatedAt,
		state.ID,
	)
	if err != nil {
		return fmt.Errorf("update knowledge state: %w", err)
	}
	return nil
}

func (s *Store) insertInteractionTx(ctx context.Context, tx *sqlx.Tx, in *models.LearningInteraction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO learning_interactions (id, user_id, topic, interaction_type, practice_attempt_id, exam_attempt_id, answer_text, correct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		in.ID, in.UserID, in.Topic, in.InteractionType,
		in.PracticeAttemptID, in.ExamAttemptID, in.AnswerText, in.Correct, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *Store) insertEvaluationTx(ctx context.Context, tx *sqlx.Tx, ev *models.AnswerEvaluation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO answer_evaluations (id, interaction_id, score, max_score, feedback, detected_mistakes, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.InteractionID, ev.Score, ev.MaxScore, ev.Feedback, ev.DetectedMistakes, ev.Confidence, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// GetReviewQueue returns due states, most urgent first.
func (s *Store) GetReviewQueue(ctx context.Context, userID string, maxItems int, now time.Time) ([]models.KnowledgeState, error) {
	if maxItems <= 0 {
		maxItems = 10
	}
	states := []models.KnowledgeState{}
	err := s.db.SelectContext(ctx, &states, `
		SELECT * FROM knowledge_states
		WHERE user_id = $1 AND next_review_at IS NOT NULL AND next_review_at <= $2
		ORDER BY forgetting_risk DESC, next_review_at ASC
		LIMIT $3`,
		userID, now, maxItems,
	)
	if err != nil {
		return nil, fmt.Errorf("get review queue: %w", err)
	}
	return states, nil
}

// GetMyStates returns all of a user's states ordered like the review
// queue, without the due-date filter.
func (s *Store) GetMyStates(ctx context.Context, userID string) ([]models.KnowledgeState, error) {
	states := []models.KnowledgeState{}
	err := s.db.SelectContext(ctx, &states, `
		SELECT * FROM knowledge_states
		WHERE user_id = $1
		ORDER BY forgetting_risk DESC, next_review_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get states: %w", err)
	}
	return states, nil
}

// WeakestState returns the state most in need of practice: highest
// forgetting risk, ties broken by lowest mastery.
func (s *Store) WeakestState(ctx context.Context, userID string) (*models.KnowledgeState, error) {
	var state models.KnowledgeState
	err := s.db.GetContext(ctx, &state, `
		SELECT * FROM knowledge_states
		WHERE user_id = $1
		ORDER BY forgetting_risk DESC, mastery_score ASC
		LIMIT 1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// StateForNote returns the user's state sourced from the given note, if
// any.
func (s *Store) StateForNote(ctx context.Context, userID, noteID string) (*models.KnowledgeState, error) {
	var state models.KnowledgeState
	err := s.db.GetContext(ctx, &state, `
		SELECT * FROM knowledge_states
		WHERE user_id = $1 AND source_note_id = $2
		ORDER BY updated_at DESC
		LIMIT 1`,
		userID, noteID,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteUserData removes everything tracked for a user. Account
// deletion hook; evaluations go via the interaction cascade.
func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM learning_interactions WHERE user_id = $1`,
		`DELETE FROM knowledge_states WHERE user_id = $1`,
		`DELETE FROM concept_clusters WHERE user_id = $1`,
		`DELETE FROM study_summaries WHERE user_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("delete user data: %w", err)
		}
	}
	return tx.Commit()
}

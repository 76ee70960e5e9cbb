// Package knowledge maintains the per-(user, topic) mastery records and
// the append-only interaction log they are derived from.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/decay"
	"github.com/studyloop/engine/internal/mistakes"
	"github.com/studyloop/engine/internal/models"
)

// ErrAttemptRef rejects attempts that do not reference exactly one of a
// practice or an exam attempt.
var ErrAttemptRef = errors.New("exactly one of practice or exam attempt reference must be set")

const (
	// Mastery and confidence move by exponential moving average: the
	// old value keeps 70% of its weight per attempt.
	emaOldWeight = 0.7
	emaNewWeight = 0.3
)

// Evaluation is an AI grading result attached to one answered question.
type Evaluation struct {
	Score            float64
	MaxScore         float64
	Feedback         string
	DetectedMistakes []string
	Confidence       float64
}

// AnsweredQuestion is one question of a submitted attempt.
type AnsweredQuestion struct {
	QuestionType  mistakes.QuestionType
	UserAnswer    string
	CorrectAnswer string
	Evaluation    *Evaluation
}

// AttemptResult is a completed attempt as submitted by the caller.
// Score is the attempt's normalized score in [0,1].
type AttemptResult struct {
	UserID            string
	PracticeAttemptID *string
	ExamAttemptID     *string
	InteractionType   models.InteractionType
	ModuleTitle       string
	NoteTitle         string
	NoteID            *string
	Score             float64
	Questions         []AnsweredQuestion
}

// Tracker applies attempt results to knowledge states.
type Tracker struct {
	db    *sqlx.DB
	store *Store
	now   func() time.Time
}

func NewTracker(db *sqlx.DB) *Tracker {
	return &Tracker{db: db, store: NewStore(db), now: func() time.Time { return time.Now().UTC() }}
}

func (t *Tracker) Store() *Store {
	return t.store
}

// Topic builds the canonical topic label for a note.
func Topic(moduleTitle, noteTitle string) string {
	if moduleTitle == "" && noteTitle == "" {
		return "General"
	}
	if moduleTitle == "" {
		return noteTitle
	}
	if noteTitle == "" {
		return moduleTitle
	}
	return moduleTitle + " / " + noteTitle
}

// ApplyAttemptResult folds one attempt into the (user, topic) state:
// EMA update of mastery and confidence, recomputed forgetting risk and
// review schedule, one interaction row per question, an evaluation row
// per graded question, and merged mistake patterns. Everything commits
// in one transaction so the state never advances without its log.
func (t *Tracker) ApplyAttemptResult(ctx context.Context, result AttemptResult) (*models.KnowledgeState, error) {
	if (result.PracticeAttemptID == nil) == (result.ExamAttemptID == nil) {
		return nil, ErrAttemptRef
	}
	score := decay.Clamp01(result.Score)
	topic := Topic(result.ModuleTitle, result.NoteTitle)
	now := t.now()

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attempt: %w", err)
	}
	defer tx.Rollback()

	state, err := t.store.getOrCreateStateTx(ctx, tx, result.UserID, topic, result.NoteID, now)
	if err != nil {
		return nil, err
	}

	state.MasteryScore = decay.Clamp01(state.MasteryScore*emaOldWeight + score*emaNewWeight)
	state.ConfidenceScore = decay.Clamp01(state.ConfidenceScore*emaOldWeight + score*emaNewWeight)
	state.ForgettingRisk = decay.Clamp01(1 - state.MasteryScore)
	state.LastReviewedAt = &now
	nextReview := decay.NextReviewAt(state.MasteryScore, now)
	state.NextReviewAt = &nextReview
	state.UpdatedAt = now

	patterns := map[string]int{}
	if err := json.Unmarshal([]byte(state.MistakePatterns), &patterns); err != nil {
		log.Printf("WARN: [knowledge] resetting unreadable mistake patterns for state %s: %v", state.ID, err)
		patterns = map[string]int{}
	}

	for _, q := range result.Questions {
		var aiScore *float64
		if q.Evaluation != nil && q.Evaluation.MaxScore > 0 {
			normalized := q.Evaluation.Score / q.Evaluation.MaxScore
			aiScore = &normalized
		}
		cats := mistakes.Classify(q.QuestionType, q.UserAnswer, q.CorrectAnswer, aiScore)
		patterns = mistakes.MergePatterns(patterns, cats)

		correct := len(cats) == 0
		interaction := &models.LearningInteraction{
			ID:                uuid.NewString(),
			UserID:            result.UserID,
			Topic:             topic,
			InteractionType:   result.InteractionType,
			PracticeAttemptID: result.PracticeAttemptID,
			ExamAttemptID:     result.ExamAttemptID,
			AnswerText:        q.UserAnswer,
			Correct:           &correct,
			CreatedAt:         now,
		}
		if err := t.store.insertInteractionTx(ctx, tx, interaction); err != nil {
			return nil, err
		}

		if q.Evaluation != nil {
			detected, err := json.Marshal(q.Evaluation.DetectedMistakes)
			if err != nil {
				return nil, fmt.Errorf("marshal detected mistakes: %w", err)
			}
			evaluation := &models.AnswerEvaluation{
				ID:               uuid.NewString(),
				InteractionID:    interaction.ID,
				Score:            q.Evaluation.Score,
				MaxScore:         q.Evaluation.MaxScore,
				Feedback:         q.Evaluation.Feedback,
				DetectedMistakes: string(detected),
				Confidence:       decay.Clamp01(q.Evaluation.Confidence),
				CreatedAt:        now,
			}
			if err := t.store.insertEvaluationTx(ctx, tx, evaluation); err != nil {
				return nil, err
			}
		}
	}

	merged, err := json.Marshal(patterns)
	if err != nil {
		return nil, fmt.Errorf("marshal mistake patterns: %w", err)
	}
	state.MistakePatterns = string(merged)

	if err := t.store.updateStateTx(ctx, tx, state); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attempt: %w", err)
	}
	return state, nil
}

package models

import "time"

type InteractionType string

const (
	InteractionQuizAnswer     InteractionType = "quiz_answer"
	InteractionSelfEvaluation InteractionType = "self_evaluation"
	InteractionNoteReview     InteractionType = "note_review"
)

// KnowledgeState is the per-(user, topic) mastery record. All three scores
// stay clamped to [0,1]; forgetting_risk is derived and recomputable.
type KnowledgeState struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	Topic           string     `db:"topic" json:"topic"`
	SourceNoteID    *string    `db:"source_note_id" json:"source_note_id,omitempty"`
	ClusterID       *string    `db:"cluster_id" json:"cluster_id,omitempty"`
	MasteryScore    float64    `db:"mastery_score" json:"mastery_score"`
	ConfidenceScore float64    `db:"confidence_score" json:"confidence_score"`
	ForgettingRisk  float64    `db:"forgetting_risk" json:"forgetting_risk"`
	LastReviewedAt  *time.Time `db:"last_reviewed_at" json:"last_reviewed_at,omitempty"`
	NextReviewAt    *time.Time `db:"next_review_at" json:"next_review_at,omitempty"`
	MistakePatterns string     `db:"mistake_patterns" json:"mistake_patterns"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// LearningInteraction is one answered question within an attempt.
// Append-only; exactly one of PracticeAttemptID / ExamAttemptID is set.
type LearningInteraction struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	Topic             string          `db:"topic" json:"topic"`
	InteractionType   InteractionType `db:"interaction_type" json:"interaction_type"`
	PracticeAttemptID *string         `db:"practice_attempt_id" json:"practice_attempt_id,omitempty"`
	ExamAttemptID     *string         `db:"exam_attempt_id" json:"exam_attempt_id,omitempty"`
	AnswerText        string          `db:"answer_text" json:"answer_text"`
	Correct           *bool           `db:"correct" json:"correct,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// AnswerEvaluation is the AI grading result for one interaction.
// Created once, never mutated.
type AnswerEvaluation struct {
	ID               string    `db:"id" json:"id"`
	InteractionID    string    `db:"interaction_id" json:"interaction_id"`
	Score            float64   `db:"score" json:"score"`
	MaxScore         float64   `db:"max_score" json:"max_score"`
	Feedback         string    `db:"feedback" json:"feedback"`
	DetectedMistakes string    `db:"detected_mistakes" json:"detected_mistakes"`
	Confidence       float64   `db:"confidence" json:"confidence"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Note is the minimal reference target for fixed-note session selection
// and ownership checks. Full note CRUD lives outside this engine.
type Note struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	ModuleID    string    `db:"module_id" json:"module_id"`
	ModuleTitle string    `db:"module_title" json:"module_title"`
	Title       string    `db:"title" json:"title"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

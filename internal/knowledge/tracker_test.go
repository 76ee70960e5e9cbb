package knowledge

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/database"
	"github.com/studyloop/engine/internal/mistakes"
	"github.com/studyloop/engine/internal/models"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func quizAttempt(score float64) AttemptResult {
	return AttemptResult{
		UserID:            "user-1",
		PracticeAttemptID: strPtr("attempt-1"),
		InteractionType:   models.InteractionQuizAnswer,
		ModuleTitle:       "Biology",
		NoteTitle:         "Cell Structure",
		Score:             score,
		Questions: []AnsweredQuestion{
			{QuestionType: mistakes.MultipleChoice, UserAnswer: "A", CorrectAnswer: "A"},
			{QuestionType: mistakes.MultipleChoice, UserAnswer: "B", CorrectAnswer: "C"},
		},
	}
}

func TestTopic(t *testing.T) {
	if got := Topic("Biology", "Cell Structure"); got != "Biology / Cell Structure" {
		t.Errorf("Topic = %q", got)
	}
	if got := Topic("", ""); got != "General" {
		t.Errorf("empty Topic = %q, want General", got)
	}
	if got := Topic("Biology", ""); got != "Biology" {
		t.Errorf("module-only Topic = %q", got)
	}
}

func TestApplyAttemptResultFirstTouch(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(testDB(t))

	state, err := tracker.ApplyAttemptResult(ctx, quizAttempt(1.0))
	if err != nil {
		t.Fatalf("ApplyAttemptResult: %v", err)
	}

	// First touch starts from the 0.5 neutral default: 0.5*0.7 + 1.0*0.3.
	if math.Abs(state.MasteryScore-0.65) > 1e-9 {
		t.Errorf("mastery = %f, want 0.65", state.MasteryScore)
	}
	if math.Abs(state.ForgettingRisk-0.35) > 1e-9 {
		t.Errorf("risk = %f, want 0.35", state.ForgettingRisk)
	}
	if state.LastReviewedAt == nil || state.NextReviewAt == nil {
		t.Fatal("review timestamps not stamped")
	}
	if !state.NextReviewAt.After(*state.LastReviewedAt) {
		t.Error("nextReviewAt not after lastReviewedAt")
	}

	var patterns map[string]int
	if err := json.Unmarshal([]byte(state.MistakePatterns), &patterns); err != nil {
		t.Fatalf("unmarshal patterns: %v", err)
	}
	if patterns[string(mistakes.IncorrectAnswer)] != 1 {
		t.Errorf("patterns = %v, want one IncorrectAnswer", patterns)
	}
}

func TestApplyAttemptResultSingleRowPerTopic(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	tracker := NewTracker(db)

	if _, err := tracker.ApplyAttemptResult(ctx, quizAttempt(1.0)); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	second := quizAttempt(0.0)
	second.PracticeAttemptID = strPtr("attempt-2")
	if _, err := tracker.ApplyAttemptResult(ctx, second); err != nil {
		t.Fatalf("second attempt: %v", err)
	}

	var rows int
	if err := db.Get(&rows, `SELECT COUNT(*) FROM knowledge_states WHERE user_id = $1`, "user-1"); err != nil {
		t.Fatalf("count states: %v", err)
	}
	if rows != 1 {
		t.Errorf("got %d state rows for one (user, topic), want 1", rows)
	}

	var interactions int
	if err := db.Get(&interactions, `SELECT COUNT(*) FROM learning_interactions WHERE user_id = $1`, "user-1"); err != nil {
		t.Fatalf("count interactions: %v", err)
	}
	if interactions != 4 {
		t.Errorf("got %d interactions, want 4 (two per attempt)", interactions)
	}
}

func TestApplyAttemptResultRejectsAmbiguousRef(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(testDB(t))

	both := quizAttempt(1.0)
	both.ExamAttemptID = strPtr("exam-1")
	if _, err := tracker.ApplyAttemptResult(ctx, both); err != ErrAttemptRef {
		t.Errorf("both refs: err = %v, want ErrAttemptRef", err)
	}

	neither := quizAttempt(1.0)
	neither.PracticeAttemptID = nil
	if _, err := tracker.ApplyAttemptResult(ctx, neither); err != ErrAttemptRef {
		t.Errorf("no refs: err = %v, want ErrAttemptRef", err)
	}
}

func TestApplyAttemptResultStoresEvaluation(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	tracker := NewTracker(db)

	attempt := quizAttempt(0.8)
	attempt.Questions = []AnsweredQuestion{{
		QuestionType:  mistakes.OpenText,
		UserAnswer:    "ATP is produced in the mitochondria",
		CorrectAnswer: "Mitochondria produce ATP",
		Evaluation: &Evaluation{
			Score: 0.8, MaxScore: 1, Feedback: "Mostly right.", Confidence: 0.9,
			DetectedMistakes: []string{"imprecise wording"},
		},
	}}
	if _, err := tracker.ApplyAttemptResult(ctx, attempt); err != nil {
		t.Fatalf("ApplyAttemptResult: %v", err)
	}

	var evaluations int
	if err := db.Get(&evaluations, `SELECT COUNT(*) FROM answer_evaluations`); err != nil {
		t.Fatalf("count evaluations: %v", err)
	}
	if evaluations != 1 {
		t.Errorf("got %d evaluations, want 1", evaluations)
	}
}

func TestGetReviewQueueOnlyDueStates(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := NewStore(db)
	now := time.Now().UTC()

	yesterday := now.AddDate(0, 0, -1)
	nextWeek := now.AddDate(0, 0, 7)
	seed := []struct {
		id, topic string
		risk      float64
		due       time.Time
	}{
		{"s1", "Biology / Cells", 0.6, yesterday},
		{"s2", "Biology / Genetics", 0.9, nextWeek},
	}
	for _, s := range seed {
		_, err := db.Exec(`
			INSERT INTO knowledge_states (id, user_id, topic, mastery_score, confidence_score, forgetting_risk, next_review_at, mistake_patterns, updated_at)
			VALUES ($1, $2, $3, 0.5, 0.5, $4, $5, '{}', $6)`,
			s.id, "user-1", s.topic, s.risk, s.due, now,
		)
		if err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}

	queue, err := store.GetReviewQueue(ctx, "user-1", 10, now)
	if err != nil {
		t.Fatalf("GetReviewQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("got %d due states, want 1", len(queue))
	}
	if queue[0].Topic != "Biology / Cells" {
		t.Errorf("due topic = %q", queue[0].Topic)
	}
}

func TestDeleteUserData(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	tracker := NewTracker(db)

	if _, err := tracker.ApplyAttemptResult(ctx, quizAttempt(0.7)); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	if err := tracker.Store().DeleteUserData(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteUserData: %v", err)
	}

	states, err := tracker.Store().GetMyStates(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetMyStates: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("states survived deletion: %d", len(states))
	}
}

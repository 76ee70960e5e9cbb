// Package selector resolves what a study session should practice and
// creates the session's quiz job. It is the engine's single creation
// entrypoint: the triggering call only ever writes the queued row, all
// processing happens in the pipeline.
package selector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/knowledge"
	"github.com/studyloop/engine/internal/models"
	"github.com/studyloop/engine/internal/pipeline"
)

var (
	ErrValidation       = errors.New("invalid session request")
	ErrNoEligibleTopics = errors.New("no eligible topics")
	ErrNotFound         = errors.New("note not found")
	ErrForbidden        = errors.New("note belongs to another user")
)

type Mode string

const (
	ModeReview    Mode = "review"
	ModeWeakness  Mode = "weakness"
	ModeFixedNote Mode = "fixed_note"
)

const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"

	defaultQuestionCount = 6
	defaultMaxTopics     = 10
)

// Request describes the session the caller wants.
type Request struct {
	Mode          Mode
	NoteID        string
	QuestionCount int
	MaxTopics     int
}

// Target is the resolved subject of a session.
type Target struct {
	NoteID     string
	Topic      string
	Mastery    float64
	Difficulty string
}

// Session is the created quiz job plus its resolved target.
type Session struct {
	Target Target
	Quiz   *models.PendingQuiz
	Run    *models.AgentRun
}

type Service struct {
	db     *sqlx.DB
	states *knowledge.Store
	queues *pipeline.Store
	runs   *agentrun.Tracker
	now    func() time.Time
}

func NewService(db *sqlx.DB, states *knowledge.Store, queues *pipeline.Store, runs *agentrun.Tracker) *Service {
	return &Service{
		db:     db,
		states: states,
		queues: queues,
		runs:   runs,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DifficultyFor maps mastery to a generation difficulty.
func DifficultyFor(mastery float64) string {
	switch {
	case mastery >= 0.75:
		return DifficultyAdvanced
	case mastery >= 0.50:
		return DifficultyIntermediate
	default:
		return DifficultyBeginner
	}
}

// ResolveTarget picks the note and difficulty for the requested mode
// without mutating anything.
func (s *Service) ResolveTarget(ctx context.Context, userID string, req Request) (*Target, error) {
	switch req.Mode {
	case ModeReview:
		return s.resolveReview(ctx, userID, req.MaxTopics)
	case ModeWeakness:
		return s.resolveWeakness(ctx, userID)
	case ModeFixedNote:
		if req.NoteID == "" {
			return nil, fmt.Errorf("%w: fixed-note mode requires a note id", ErrValidation)
		}
		return s.resolveFixedNote(ctx, userID, req.NoteID)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, req.Mode)
	}
}

// resolveReview takes the first due state that still references a
// source note; states whose note was deleted cannot seed a quiz.
func (s *Service) resolveReview(ctx context.Context, userID string, maxTopics int) (*Target, error) {
	if maxTopics <= 0 {
		maxTopics = defaultMaxTopics
	}
	due, err := s.states.GetReviewQueue(ctx, userID, maxTopics, s.now())
	if err != nil {
		return nil, err
	}
	for _, state := range due {
		if state.SourceNoteID != nil {
			return &Target{
				NoteID:     *state.SourceNoteID,
				Topic:      state.Topic,
				Mastery:    state.MasteryScore,
				Difficulty: DifficultyFor(state.MasteryScore),
			}, nil
		}
	}
	return nil, ErrNoEligibleTopics
}

func (s *Service) resolveWeakness(ctx context.Context, userID string) (*Target, error) {
	state, err := s.states.WeakestState(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoEligibleTopics
	}
	if err != nil {
		return nil, fmt.Errorf("resolve weakness: %w", err)
	}
	if state.SourceNoteID == nil {
		return nil, ErrNoEligibleTopics
	}
	return &Target{
		NoteID:     *state.SourceNoteID,
		Topic:      state.Topic,
		Mastery:    state.MasteryScore,
		Difficulty: DifficultyFor(state.MasteryScore),
	}, nil
}

// resolveFixedNote distinguishes absent from not-owned: callers polling
// a deleted note see not-found, callers probing someone else's note see
// forbidden.
func (s *Service) resolveFixedNote(ctx context.Context, userID, noteID string) (*Target, error) {
	var note models.Note
	err := s.db.GetContext(ctx, &note, `SELECT * FROM notes WHERE id = $1`, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve note: %w", err)
	}
	if note.UserID != userID {
		return nil, ErrForbidden
	}

	mastery := 0.5
	topic := knowledge.Topic(note.ModuleTitle, note.Title)
	state, err := s.states.StateForNote(ctx, userID, noteID)
	if err == nil {
		mastery = state.MasteryScore
		topic = state.Topic
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve note state: %w", err)
	}

	return &Target{
		NoteID:     noteID,
		Topic:      topic,
		Mastery:    mastery,
		Difficulty: DifficultyFor(mastery),
	}, nil
}

// StartSession resolves the target and enqueues the quiz job. The quiz
// row and its AgentRun commit together, then the call returns; the
// pipeline picks the job up on its next tick.
func (s *Service) StartSession(ctx context.Context, userID string, req Request) (*Session, error) {
	target, err := s.ResolveTarget(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	questionCount := req.QuestionCount
	if questionCount <= 0 {
		questionCount = defaultQuestionCount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	defer tx.Rollback()

	run, err := s.runs.Create(ctx, tx, userID, models.RunQuizGeneration, agentrun.CreateOptions{
		InputHash: pipeline.InputHash(target.NoteID, target.Difficulty),
	})
	if err != nil {
		return nil, err
	}
	quiz := &models.PendingQuiz{
		ID:            uuid.NewString(),
		UserID:        userID,
		NoteID:        target.NoteID,
		QuestionCount: questionCount,
		Difficulty:    target.Difficulty,
		Status:        models.QuizGenerating,
		AgentRunID:    &run.ID,
		CreatedAt:     s.now(),
	}
	if err := s.queues.InsertQuizTx(ctx, tx, quiz); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}

	return &Session{Target: *target, Quiz: quiz, Run: run}, nil
}

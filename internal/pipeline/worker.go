// Package pipeline polls the work queues and drives each item to a
// terminal status. One item's failure never aborts its batch, and a
// pass-level failure never kills the loop.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/extraction"
	"github.com/studyloop/engine/internal/models"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultBatchSize      = 5
	defaultCallTimeoutSec = 120
)

// Worker owns the extraction and quiz queues. It holds no state between
// iterations; every pass re-reads the queues, so a crash loses nothing
// beyond the in-flight batch.
type Worker struct {
	store       *Store
	runs        *agentrun.Tracker
	extractor   *extraction.Extractor
	ai          ai.Client
	interval    time.Duration
	batchSize   int
	callTimeout time.Duration
	now         func() time.Time
}

func NewWorker(store *Store, runs *agentrun.Tracker, extractor *extraction.Extractor, aiClient ai.Client) *Worker {
	timeoutSec := defaultCallTimeoutSec
	if raw := os.Getenv("AI_CALL_TIMEOUT_SECONDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	return &Worker{
		store:       store,
		runs:        runs,
		extractor:   extractor,
		ai:          aiClient,
		interval:    defaultPollInterval,
		batchSize:   defaultBatchSize,
		callTimeout: time.Duration(timeoutSec) * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until the context is cancelled. Cancellation is observed at
// the top of each sleep; in-flight batch items finish first.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[pipeline] worker started (interval %s, batch %d)", w.interval, w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runPass(ctx)
		select {
		case <-ctx.Done():
			log.Println("[pipeline] worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// RunPass executes one full pass over both queues. Exported for tests
// and one-shot maintenance runs.
func (w *Worker) RunPass(ctx context.Context) {
	w.runPass(ctx)
}

func (w *Worker) runPass(ctx context.Context) {
	if err := w.extractionPass(ctx); err != nil {
		log.Printf("WARN: [pipeline] extraction pass: %v", err)
	}
	if err := w.quizPass(ctx); err != nil {
		log.Printf("WARN: [pipeline] quiz pass: %v", err)
	}
}

func (w *Worker) extractionPass(ctx context.Context) error {
	items, err := w.store.ListPendingExtractions(ctx, w.batchSize)
	if err != nil {
		return err
	}
	for _, item := range items {
		w.processExtraction(ctx, item)
	}
	return nil
}

func (w *Worker) processExtraction(ctx context.Context, item models.ExtractedContent) {
	if item.AgentRunID != nil {
		if err := w.runs.MarkRunning(ctx, *item.AgentRunID, w.ai.Model()); err != nil {
			log.Printf("WARN: [pipeline] mark run running: %v", err)
		}
	}

	text, usage, err := w.safeExtract(ctx, item)
	now := w.now()
	if err != nil {
		log.Printf("WARN: [pipeline] extraction %s (%s) failed: %v", item.ID, item.FileName, err)
		if markErr := w.store.FailExtraction(ctx, item.ID, err.Error(), now); markErr != nil {
			log.Printf("WARN: [pipeline] mark extraction failed: %v", markErr)
		}
		w.failRun(ctx, item.AgentRunID, err)
		return
	}

	if err := w.store.CompleteExtraction(ctx, item.ID, text, now); err != nil {
		log.Printf("WARN: [pipeline] mark extraction ready: %v", err)
		return
	}
	if item.AgentRunID != nil {
		if err := w.runs.MarkCompleted(ctx, *item.AgentRunID, text, usage); err != nil {
			log.Printf("WARN: [pipeline] mark run completed: %v", err)
		}
	}
	log.Printf("[pipeline] extracted %s (%s, %d chars)", item.FileName, item.ContentType, len(text))
}

// safeExtract isolates one item: a panic inside an extraction strategy
// becomes that item's error instead of taking down the batch.
func (w *Worker) safeExtract(ctx context.Context, item models.ExtractedContent) (text string, usage *ai.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panic: %v", r)
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	return w.extractor.Extract(callCtx, item)
}

func (w *Worker) quizPass(ctx context.Context) error {
	quizzes, err := w.store.ListPendingQuizzes(ctx, w.batchSize)
	if err != nil {
		return err
	}
	for _, quiz := range quizzes {
		w.processQuiz(ctx, quiz)
	}
	return nil
}

func (w *Worker) processQuiz(ctx context.Context, quiz models.PendingQuiz) {
	if quiz.AgentRunID != nil {
		if err := w.runs.MarkRunning(ctx, *quiz.AgentRunID, w.ai.Model()); err != nil {
			log.Printf("WARN: [pipeline] mark run running: %v", err)
		}
	}

	payload, usage, err := w.safeGenerate(ctx, quiz)
	now := w.now()
	if err != nil {
		log.Printf("WARN: [pipeline] quiz %s failed: %v", quiz.ID, err)
		if markErr := w.store.FailQuiz(ctx, quiz.ID, err.Error(), now); markErr != nil {
			log.Printf("WARN: [pipeline] mark quiz failed: %v", markErr)
		}
		w.failRun(ctx, quiz.AgentRunID, err)
		return
	}

	if err := w.store.CompleteQuiz(ctx, quiz.ID, payload, now); err != nil {
		log.Printf("WARN: [pipeline] mark quiz ready: %v", err)
		return
	}
	if quiz.AgentRunID != nil {
		if err := w.runs.MarkCompleted(ctx, *quiz.AgentRunID, payload, usage); err != nil {
			log.Printf("WARN: [pipeline] mark run completed: %v", err)
		}
	}
	log.Printf("[pipeline] quiz %s ready for note %s", quiz.ID, quiz.NoteID)
}

func (w *Worker) safeGenerate(ctx context.Context, quiz models.PendingQuiz) (payload string, usage *ai.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panic: %v", r)
		}
	}()

	content, err := w.store.NoteText(ctx, quiz.NoteID)
	if err != nil {
		return "", nil, err
	}
	if content == "" {
		return "", nil, fmt.Errorf("note %s has no extracted content", quiz.NoteID)
	}

	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	resp, err := w.ai.GenerateQuestions(callCtx, content, quiz.QuestionCount, quiz.Difficulty)
	if err != nil {
		return "", nil, fmt.Errorf("generate questions: %w", err)
	}

	// Malformed output degrades to an empty question list, never an
	// aborted batch.
	parsed := ai.ParseQuestionPayload(resp.Content)
	if len(parsed.Questions) == 0 {
		log.Printf("WARN: [pipeline] quiz %s got zero usable questions", quiz.ID)
	}
	serialized, err := marshalPayload(parsed)
	if err != nil {
		return "", nil, err
	}
	return serialized, resp, nil
}

func marshalPayload(payload *ai.QuestionPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal quiz payload: %w", err)
	}
	return string(data), nil
}

func (w *Worker) failRun(ctx context.Context, runID *string, cause error) {
	if runID == nil {
		return
	}
	if err := w.runs.MarkFailed(ctx, *runID, cause.Error()); err != nil {
		log.Printf("WARN: [pipeline] mark run failed: %v", err)
	}
}

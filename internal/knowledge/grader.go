package knowledge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/models"
)

// Grader scores open-text answers through the AI capability. Grading
// runs synchronously in the attempt-submission path, so each call gets
// its own bounded timeout and its own AgentRun record.
type Grader struct {
	ai      ai.Client
	runs    *agentrun.Tracker
	timeout time.Duration
}

func NewGrader(aiClient ai.Client, runs *agentrun.Tracker) *Grader {
	return &Grader{ai: aiClient, runs: runs, timeout: 60 * time.Second}
}

// GradeOpenText grades one answer against its question and rubric. A
// malformed grading response degrades to a zero grade rather than an
// error; only the AI call itself failing is surfaced.
func (g *Grader) GradeOpenText(ctx context.Context, userID, question, rubric, answer string) (*Evaluation, error) {
	run, err := g.runs.Create(ctx, g.runs.DB(), userID, models.RunGrading, agentrun.CreateOptions{})
	if err != nil {
		return nil, err
	}
	if err := g.runs.MarkRunning(ctx, run.ID, g.ai.Model()); err != nil {
		log.Printf("WARN: [grader] mark running: %v", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.ai.GradeAnswer(callCtx, question, rubric, answer)
	if err != nil {
		if markErr := g.runs.MarkFailed(ctx, run.ID, err.Error()); markErr != nil {
			log.Printf("WARN: [grader] mark failed: %v", markErr)
		}
		return nil, fmt.Errorf("grade answer: %w", err)
	}

	grade := ai.ParseGrade(resp.Content)
	if err := g.runs.MarkCompleted(ctx, run.ID, resp.Content, resp); err != nil {
		log.Printf("WARN: [grader] mark completed: %v", err)
	}
	return &Evaluation{
		Score:            grade.Score,
		MaxScore:         grade.MaxScore,
		Feedback:         grade.Feedback,
		DetectedMistakes: grade.DetectedMistakes,
		Confidence:       grade.Confidence,
	}, nil
}

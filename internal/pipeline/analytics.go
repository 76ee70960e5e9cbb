package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/analytics"
	"github.com/studyloop/engine/internal/models"
)

const (
	analyticsInterval  = 15
	analyticsBatchSize = 25
)

// AnalyticsSweep refreshes study summaries on a 15 minute schedule,
// batch 25 users per pass, oldest summary first.
type AnalyticsSweep struct {
	store *analytics.Store
	runs  *agentrun.Tracker
	now   func() time.Time
}

func NewAnalyticsSweep(store *analytics.Store, runs *agentrun.Tracker) *AnalyticsSweep {
	return &AnalyticsSweep{store: store, runs: runs, now: func() time.Time { return time.Now().UTC() }}
}

// Start registers the sweep on the scheduler and runs it asynchronously.
// The returned scheduler is stopped by the caller on shutdown.
func (s *AnalyticsSweep) Start() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(analyticsInterval).Minutes().Do(s.RunPass); err != nil {
		log.Printf("WARN: [analytics] schedule sweep: %v", err)
	}
	scheduler.StartAsync()
	log.Printf("[analytics] sweep scheduled every %d minutes (batch %d)", analyticsInterval, analyticsBatchSize)
	return scheduler
}

// RunPass refreshes one batch of users. Per-user failures are isolated;
// the pass always covers the rest of the batch.
func (s *AnalyticsSweep) RunPass() {
	ctx := context.Background()
	userIDs, err := s.store.ListUserIDs(ctx, analyticsBatchSize)
	if err != nil {
		log.Printf("WARN: [analytics] list users: %v", err)
		return
	}
	for _, userID := range userIDs {
		s.refreshUser(ctx, userID)
	}
	if len(userIDs) > 0 {
		log.Printf("[analytics] refreshed %d summaries", len(userIDs))
	}
}

func (s *AnalyticsSweep) refreshUser(ctx context.Context, userID string) {
	run, err := s.runs.Create(ctx, s.runs.DB(), userID, models.RunAnalytics, agentrun.CreateOptions{})
	if err != nil {
		log.Printf("WARN: [analytics] create run for %s: %v", userID, err)
		return
	}
	if err := s.runs.MarkRunning(ctx, run.ID, ""); err != nil {
		log.Printf("WARN: [analytics] mark running: %v", err)
	}

	summary, err := s.safeRefresh(ctx, userID)
	if err != nil {
		log.Printf("WARN: [analytics] refresh %s: %v", userID, err)
		if markErr := s.runs.MarkFailed(ctx, run.ID, err.Error()); markErr != nil {
			log.Printf("WARN: [analytics] mark failed: %v", markErr)
		}
		return
	}
	output := fmt.Sprintf(`{"states_tracked":%d,"due_count":%d}`, summary.StatesTracked, summary.DueCount)
	if err := s.runs.MarkCompleted(ctx, run.ID, output, nil); err != nil {
		log.Printf("WARN: [analytics] mark completed: %v", err)
	}
}

func (s *AnalyticsSweep) safeRefresh(ctx context.Context, userID string) (summary *models.StudySummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("summary panic: %v", r)
		}
	}()
	return s.store.RefreshSummary(ctx, userID, s.now())
}

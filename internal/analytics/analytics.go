// Package analytics computes the per-user study_summaries rollup. Only
// the pipeline's analytics sweep calls RefreshSummary; readers get a
// stale-but-cheap snapshot instead of aggregating on every request.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/models"
)

const weakTopicLimit = 5

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ListUserIDs returns users with tracked states, oldest summary first
// so the sweep rotates fairly through the population.
func (s *Store) ListUserIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 25
	}
	ids := []string{}
	// COALESCE keeps never-summarized users first on both drivers.
	err := s.db.SelectContext(ctx, &ids, `
		SELECT ks.user_id
		FROM knowledge_states ks
		LEFT JOIN study_summaries ss ON ss.user_id = ks.user_id
		GROUP BY ks.user_id, ss.generated_at
		ORDER BY COALESCE(ss.generated_at, '1970-01-01') ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list summary users: %w", err)
	}
	return ids, nil
}

type weakTopic struct {
	Topic string  `db:"topic" json:"topic"`
	Risk  float64 `db:"risk" json:"risk"`
}

// RefreshSummary recomputes one user's rollup and upserts it.
func (s *Store) RefreshSummary(ctx context.Context, userID string, now time.Time) (*models.StudySummary, error) {
	var agg struct {
		StatesTracked int     `db:"states_tracked"`
		MeanMastery   float64 `db:"mean_mastery"`
	}
	err := s.db.GetContext(ctx, &agg, `
		SELECT COUNT(*) AS states_tracked, COALESCE(AVG(mastery_score), 0) AS mean_mastery
		FROM knowledge_states WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate states: %w", err)
	}

	var dueCount int
	err = s.db.GetContext(ctx, &dueCount, `
		SELECT COUNT(*) FROM knowledge_states
		WHERE user_id = $1 AND next_review_at IS NOT NULL AND next_review_at <= $2`,
		userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("count due states: %w", err)
	}

	weakest := []weakTopic{}
	err = s.db.SelectContext(ctx, &weakest, `
		SELECT topic, forgetting_risk AS risk
		FROM knowledge_states
		WHERE user_id = $1
		ORDER BY forgetting_risk DESC, mastery_score ASC
		LIMIT $2`,
		userID, weakTopicLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list weak topics: %w", err)
	}
	weakJSON, err := json.Marshal(weakest)
	if err != nil {
		return nil, fmt.Errorf("marshal weak topics: %w", err)
	}

	summary := &models.StudySummary{
		UserID:        userID,
		StatesTracked: agg.StatesTracked,
		MeanMastery:   agg.MeanMastery,
		DueCount:      dueCount,
		WeakTopics:    string(weakJSON),
		GeneratedAt:   now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO study_summaries (user_id, states_tracked, mean_mastery, due_count, weak_topics, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			states_tracked = excluded.states_tracked,
			mean_mastery = excluded.mean_mastery,
			due_count = excluded.due_count,
			weak_topics = excluded.weak_topics,
			generated_at = excluded.generated_at`,
		summary.UserID, summary.StatesTracked, summary.MeanMastery,
		summary.DueCount, summary.WeakTopics, summary.GeneratedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}
	return summary, nil
}

// GetSummary returns the last computed rollup for a user.
func (s *Store) GetSummary(ctx context.Context, userID string) (*models.StudySummary, error) {
	var summary models.StudySummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT * FROM study_summaries WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &summary, nil
}

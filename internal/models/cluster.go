package models

import "time"

// ConceptCluster groups lexically similar topic labels under one display
// label, scoped to a module. Clusters are regenerated wholesale on each
// refresh; ids are not stable across refreshes.
type ConceptCluster struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ModuleID  string    `db:"module_id" json:"module_id"`
	Label     string    `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ConceptTopic struct {
	ID        string `db:"id" json:"id"`
	ClusterID string `db:"cluster_id" json:"cluster_id"`
	Topic     string `db:"topic" json:"topic"`
}

// StudySummary is the per-user rollup refreshed by the analytics sweep.
type StudySummary struct {
	UserID        string    `db:"user_id" json:"user_id"`
	StatesTracked int       `db:"states_tracked" json:"states_tracked"`
	MeanMastery   float64   `db:"mean_mastery" json:"mean_mastery"`
	DueCount      int       `db:"due_count" json:"due_count"`
	WeakTopics    string    `db:"weak_topics" json:"weak_topics"`
	GeneratedAt   time.Time `db:"generated_at" json:"generated_at"`
}

package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the record store. DB_TYPE selects the driver: "postgres"
// (default) for production, "sqlite" for local runs. The schema below is
// written to work on both.
func Connect() (*sqlx.DB, error) {
	if getEnv("DB_TYPE", "postgres") == "sqlite" {
		path := getEnv("DB_PATH", filepath.Join("data", "engine.db"))
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return OpenSQLite(path)
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "studyloop")
	password := getEnv("DB_PASSWORD", "studyloop")
	dbname := getEnv("DB_NAME", "studyloop")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// OpenSQLite opens a sqlite database at the given path. Tests use this
// directly with a temp directory.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// SQLite does not support concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Migrate creates the engine's tables. Idempotent; safe to run on every
// startup. All primary keys are uuid strings generated in Go so the DDL
// stays portable across both drivers.
func Migrate(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			module_id    TEXT NOT NULL,
			module_title TEXT NOT NULL DEFAULT '',
			title        TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS knowledge_states (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			topic            TEXT NOT NULL,
			source_note_id   TEXT REFERENCES notes(id),
			cluster_id       TEXT,
			mastery_score    REAL NOT NULL DEFAULT 0.5 CHECK (mastery_score >= 0 AND mastery_score <= 1),
			confidence_score REAL NOT NULL DEFAULT 0.5 CHECK (confidence_score >= 0 AND confidence_score <= 1),
			forgetting_risk  REAL NOT NULL DEFAULT 0.5 CHECK (forgetting_risk >= 0 AND forgetting_risk <= 1),
			last_reviewed_at TIMESTAMP,
			next_review_at   TIMESTAMP,
			mistake_patterns TEXT NOT NULL DEFAULT '{}',
			updated_at       TIMESTAMP NOT NULL,
			UNIQUE(user_id, topic)
		)`,

		`CREATE TABLE IF NOT EXISTS learning_interactions (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL,
			topic               TEXT NOT NULL,
			interaction_type    TEXT NOT NULL,
			practice_attempt_id TEXT,
			exam_attempt_id     TEXT,
			answer_text         TEXT NOT NULL DEFAULT '',
			correct             BOOLEAN,
			created_at          TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS answer_evaluations (
			id                TEXT PRIMARY KEY,
			interaction_id    TEXT NOT NULL REFERENCES learning_interactions(id) ON DELETE CASCADE,
			score             REAL NOT NULL,
			max_score         REAL NOT NULL,
			feedback          TEXT NOT NULL DEFAULT '',
			detected_mistakes TEXT NOT NULL DEFAULT '[]',
			confidence        REAL NOT NULL DEFAULT 0,
			created_at        TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS concept_clusters (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			module_id  TEXT NOT NULL,
			label      TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS concept_topics (
			id         TEXT PRIMARY KEY,
			cluster_id TEXT NOT NULL REFERENCES concept_clusters(id) ON DELETE CASCADE,
			topic      TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS agent_runs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			run_type       TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			input_hash     TEXT NOT NULL DEFAULT '',
			correlation_id TEXT NOT NULL DEFAULT '',
			model          TEXT,
			output         TEXT,
			error_message  TEXT,
			prompt_tokens  INTEGER NOT NULL DEFAULT 0,
			output_tokens  INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMP NOT NULL,
			started_at     TIMESTAMP,
			completed_at   TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS extracted_contents (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			note_id       TEXT NOT NULL,
			file_name     TEXT NOT NULL,
			content_type  TEXT NOT NULL,
			blob_path     TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'processing',
			text          TEXT,
			error_message TEXT,
			agent_run_id  TEXT,
			created_at    TIMESTAMP NOT NULL,
			completed_at  TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS pending_quizzes (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			note_id        TEXT NOT NULL,
			question_count INTEGER NOT NULL DEFAULT 6,
			difficulty     TEXT NOT NULL DEFAULT 'intermediate',
			status         TEXT NOT NULL DEFAULT 'generating',
			payload        TEXT,
			error_message  TEXT,
			agent_run_id   TEXT,
			created_at     TIMESTAMP NOT NULL,
			completed_at   TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS study_summaries (
			user_id        TEXT PRIMARY KEY,
			states_tracked INTEGER NOT NULL DEFAULT 0,
			mean_mastery   REAL NOT NULL DEFAULT 0,
			due_count      INTEGER NOT NULL DEFAULT 0,
			weak_topics    TEXT NOT NULL DEFAULT '[]',
			generated_at   TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_states_user ON knowledge_states(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_states_review ON knowledge_states(user_id, next_review_at)`,
		`CREATE INDEX IF NOT EXISTS idx_states_cluster ON knowledge_states(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON learning_interactions(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_interaction ON answer_evaluations(interaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_module ON concept_clusters(user_id, module_id)`,
		`CREATE INDEX IF NOT EXISTS idx_topics_cluster ON concept_topics(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user ON agent_runs(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON agent_runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_status ON extracted_contents(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_note ON extracted_contents(note_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_status ON pending_quizzes(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

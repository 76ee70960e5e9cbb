package clustering

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/database"
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

func seedState(t *testing.T, db *sqlx.DB, userID, moduleID, noteTitle, topic string) string {
	t.Helper()
	now := time.Now().UTC()
	noteID := uuid.NewString()
	if _, err := db.Exec(`
		INSERT INTO notes (id, user_id, module_id, module_title, title, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		noteID, userID, moduleID, "Module", noteTitle, now,
	); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	stateID := uuid.NewString()
	if _, err := db.Exec(`
		INSERT INTO knowledge_states (id, user_id, topic, source_note_id, mastery_score, confidence_score, forgetting_risk, mistake_patterns, updated_at)
		VALUES ($1, $2, $3, $4, 0.5, 0.5, 0.5, '{}', $5)`,
		stateID, userID, topic, noteID, now,
	); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	return stateID
}

func TestRefreshRepointsStates(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engine := NewEngine(db, nil)

	s1 := seedState(t, db, "user-1", "mod-1", "Cells", "Biology / Cell Structure")
	s2 := seedState(t, db, "user-1", "mod-1", "Membranes", "Biology / Cell Membrane")

	clusters, err := engine.Refresh(ctx, "user-1", "mod-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}

	for _, stateID := range []string{s1, s2} {
		var clusterID *string
		if err := db.Get(&clusterID, `SELECT cluster_id FROM knowledge_states WHERE id = $1`, stateID); err != nil {
			t.Fatalf("read cluster_id: %v", err)
		}
		if clusterID == nil || *clusterID != clusters[0].ID {
			t.Errorf("state %s points at %v, want %s", stateID, clusterID, clusters[0].ID)
		}
	}

	topics, err := engine.Topics(ctx, "user-1", clusters[0].ID)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(topics) != 2 {
		t.Errorf("cluster has %d topics, want 2", len(topics))
	}
}

func TestRefreshReplacesOldClusters(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engine := NewEngine(db, nil)

	seedState(t, db, "user-1", "mod-1", "Cells", "Biology / Cell Structure")

	first, err := engine.Refresh(ctx, "user-1", "mod-1")
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	second, err := engine.Refresh(ctx, "user-1", "mod-1")
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM concept_clusters WHERE user_id = $1 AND module_id = $2`, "user-1", "mod-1"); err != nil {
		t.Fatalf("count clusters: %v", err)
	}
	if total != 1 {
		t.Errorf("got %d clusters after two refreshes, want 1", total)
	}
	if first[0].ID == second[0].ID {
		t.Error("regenerated cluster reused the old id")
	}
}

func TestRefreshScopedToModule(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engine := NewEngine(db, nil)

	seedState(t, db, "user-1", "mod-1", "Cells", "Biology / Cell Structure")
	seedState(t, db, "user-1", "mod-2", "Revolution", "History / French Revolution")

	if _, err := engine.Refresh(ctx, "user-1", "mod-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	others, err := engine.List(ctx, "user-1", "mod-2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("refresh of mod-1 touched mod-2: %+v", others)
	}
}

package clustering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyloop/engine/internal/models"
)

// Engine regenerates a module's concept clusters from the topics of its
// notes.
type Engine struct {
	db       *sqlx.DB
	strategy Strategy
}

func NewEngine(db *sqlx.DB, strategy Strategy) *Engine {
	if strategy == nil {
		strategy = NewLexicalStrategy()
	}
	return &Engine{db: db, strategy: strategy}
}

// Refresh rebuilds the clusters for one (user, module). Regeneration is
// delete-and-recreate: old clusters go, new ones come in, and every
// knowledge state whose topic falls in a new cluster is re-pointed by
// topic-string membership. One transaction end to end.
func (e *Engine) Refresh(ctx context.Context, userID, moduleID string) ([]models.ConceptCluster, error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin refresh: %w", err)
	}
	defer tx.Rollback()

	topics := []string{}
	err = tx.SelectContext(ctx, &topics, `
		SELECT DISTINCT ks.topic
		FROM knowledge_states ks
		JOIN notes n ON n.id = ks.source_note_id
		WHERE ks.user_id = $1 AND n.module_id = $2
		ORDER BY ks.topic`,
		userID, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("collect topics: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM concept_clusters WHERE user_id = $1 AND module_id = $2`,
		userID, moduleID,
	); err != nil {
		return nil, fmt.Errorf("clear clusters: %w", err)
	}

	now := time.Now().UTC()
	groups := e.strategy.Cluster(topics)
	clusters := make([]models.ConceptCluster, 0, len(groups))
	for _, group := range groups {
		cluster := models.ConceptCluster{
			ID:        uuid.NewString(),
			UserID:    userID,
			ModuleID:  moduleID,
			Label:     group.Label,
			CreatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concept_clusters (id, user_id, module_id, label, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			cluster.ID, cluster.UserID, cluster.ModuleID, cluster.Label, cluster.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert cluster: %w", err)
		}

		for _, topic := range group.Topics {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO concept_topics (id, cluster_id, topic)
				VALUES ($1, $2, $3)`,
				uuid.NewString(), cluster.ID, topic,
			); err != nil {
				return nil, fmt.Errorf("insert cluster topic: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE knowledge_states SET cluster_id = $1
				WHERE user_id = $2 AND topic = $3`,
				cluster.ID, userID, topic,
			); err != nil {
				return nil, fmt.Errorf("repoint knowledge state: %w", err)
			}
		}
		clusters = append(clusters, cluster)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit refresh: %w", err)
	}
	return clusters, nil
}

// List returns a user's clusters for one module with their topics.
func (e *Engine) List(ctx context.Context, userID, moduleID string) ([]models.ConceptCluster, error) {
	clusters := []models.ConceptCluster{}
	err := e.db.SelectContext(ctx, &clusters, `
		SELECT * FROM concept_clusters
		WHERE user_id = $1 AND module_id = $2
		ORDER BY label`,
		userID, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	return clusters, nil
}

// Topics returns the member topics of one cluster, owner-scoped via the
// cluster row.
func (e *Engine) Topics(ctx context.Context, userID, clusterID string) ([]models.ConceptTopic, error) {
	topics := []models.ConceptTopic{}
	err := e.db.SelectContext(ctx, &topics, `
		SELECT ct.* FROM concept_topics ct
		JOIN concept_clusters cc ON cc.id = ct.cluster_id
		WHERE cc.id = $1 AND cc.user_id = $2
		ORDER BY ct.topic`,
		clusterID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cluster topics: %w", err)
	}
	return topics, nil
}

package repository

import (
	"context"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository reads the workspace product's tasks table. Tasks are a
// projection owned elsewhere; this service never writes them.
type TaskRepository struct {
	db dbtx
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: pool}
}

// FindOpenQuestions returns unfinished tasks that either carry an
// open-question label or mention the query in their title.
func (r *TaskRepository) FindOpenQuestions(ctx context.Context, query, workspaceID, spaceID string, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, workspace_id, space_id, title, labels, done
		 FROM tasks
		 WHERE done = FALSE
		   AND workspace_id = $1
		   AND ($2::uuid IS NULL OR space_id = $2)
		   AND (
		     EXISTS (
		       SELECT 1 FROM unnest(labels) AS label
		       WHERE lower(label) IN ('open-question', 'open question')
		     )
		     OR title ILIKE '%' || $3 || '%'
		   )
		 ORDER BY id
		 LIMIT $4`,
		workspaceID, nullableString(spaceID), query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func scanTaskRows(rows pgx.Rows) ([]*domain.Task, error) {
	var results []*domain.Task
	for rows.Next() {
		var t domain.Task
		var spaceID *string
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &spaceID, &t.Title, &t.Labels, &t.Done); err != nil {
			return nil, err
		}
		if spaceID != nil {
			t.SpaceID = *spaceID
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}

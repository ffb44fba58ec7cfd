package repository

import (
	"context"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphRepository reads the workspace product's page_relations table.
// Relations are a projection owned elsewhere; this service never writes them.
type GraphRepository struct {
	db dbtx
}

func NewGraphRepository(pool *pgxpool.Pool) *GraphRepository {
	return &GraphRepository{db: pool}
}

// RelatedPages walks the relation graph out from a seed page, following
// edges in both directions up to maxDepth hops, and returns the live pages
// reached. The seed itself is excluded.
func (r *GraphRepository) RelatedPages(ctx context.Context, seedPageID, workspaceID string, maxDepth int) ([]*domain.TypedPage, error) {
	if maxDepth <= 0 {
		maxDepth = 2
	}

	rows, err := r.db.Query(ctx,
		`WITH RECURSIVE related AS (
		   SELECT CASE WHEN r.from_page_id = $1 THEN r.to_page_id ELSE r.from_page_id END AS page_id,
		          1 AS depth
		   FROM page_relations r
		   WHERE (r.from_page_id = $1 OR r.to_page_id = $1) AND r.workspace_id = $2
		   UNION
		   SELECT CASE WHEN r.from_page_id = related.page_id THEN r.to_page_id ELSE r.from_page_id END,
		          related.depth + 1
		   FROM page_relations r
		   JOIN related ON r.from_page_id = related.page_id OR r.to_page_id = related.page_id
		   WHERE related.depth < $3 AND r.workspace_id = $2
		 )
		 SELECT DISTINCT `+pageColumns+`
		 FROM pages
		 WHERE id IN (SELECT page_id FROM related)
		   AND id <> $1
		   AND deleted_at IS NULL`,
		seedPageID, workspaceID, maxDepth,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPageRows(rows)
}

// Contradictions returns every contradicts edge in the workspace.
func (r *GraphRepository) Contradictions(ctx context.Context, workspaceID string) ([]domain.ContradictionEdge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT from_page_id, to_page_id, relation_type
		 FROM page_relations
		 WHERE workspace_id = $1 AND relation_type = 'contradicts'`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.ContradictionEdge
	for rows.Next() {
		var e domain.ContradictionEdge
		if err := rows.Scan(&e.FromPageID, &e.ToPageID, &e.Type); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

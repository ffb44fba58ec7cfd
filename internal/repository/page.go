package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pageColumns = `id, workspace_id, space_id, title, plain_text, page_type, metadata, updated_at, deleted_at`

// PageRepository reads the workspace product's pages table. Pages are a
// projection owned elsewhere; this service never writes them.
type PageRepository struct {
	db dbtx
}

func NewPageRepository(pool *pgxpool.Pool) *PageRepository {
	return &PageRepository{db: pool}
}

// GetByID returns a live page. Soft-deleted pages and ids that cannot be a
// page id at all report not found.
func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.TypedPage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPageNotFound
	}

	row := r.db.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	p, err := scanPage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PageRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.TypedPage, error) {
	if len(ids) == 0 {
		return []*domain.TypedPage{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ANY($1) AND deleted_at IS NULL`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPageRows(rows)
}

// FullTextSearch ranks live pages against a websearch-style query, scoped to
// the workspace and optionally one space.
func (r *PageRepository) FullTextSearch(ctx context.Context, query, workspaceID, spaceID string, limit int) ([]*domain.TypedPage, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+pageColumns+`
		 FROM pages
		 WHERE workspace_id = $1
		   AND ($2::uuid IS NULL OR space_id = $2)
		   AND deleted_at IS NULL
		   AND to_tsvector('english', title || ' ' || plain_text) @@ websearch_to_tsquery('english', $3)
		 ORDER BY ts_rank(to_tsvector('english', title || ' ' || plain_text), websearch_to_tsquery('english', $3)) DESC
		 LIMIT $4`,
		workspaceID, nullableString(spaceID), query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPageRows(rows)
}

// SourcePages maps page-typed knowledge sources to their origin pages.
// Sources whose origin page is gone or soft-deleted are absent from the map.
func (r *PageRepository) SourcePages(ctx context.Context, sourceIDs []string) (map[string]*domain.TypedPage, error) {
	result := make(map[string]*domain.TypedPage)
	if len(sourceIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT s.id, p.id, p.workspace_id, p.space_id, p.title, p.plain_text,
		        p.page_type, p.metadata, p.updated_at, p.deleted_at
		 FROM knowledge_sources s
		 JOIN pages p ON p.id::text = s.origin
		 WHERE s.id = ANY($1) AND s.type = 'page' AND p.deleted_at IS NULL`,
		sourceIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sourceID string
		var p domain.TypedPage
		var spaceID *string
		if err := rows.Scan(
			&sourceID, &p.ID, &p.WorkspaceID, &spaceID, &p.Title, &p.PlainText,
			&p.PageType, &p.Metadata, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		if spaceID != nil {
			p.SpaceID = *spaceID
		}
		result[sourceID] = &p
	}
	return result, rows.Err()
}

func scanPage(row pgx.Row) (*domain.TypedPage, error) {
	var p domain.TypedPage
	var spaceID *string
	err := row.Scan(
		&p.ID, &p.WorkspaceID, &spaceID, &p.Title, &p.PlainText,
		&p.PageType, &p.Metadata, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if spaceID != nil {
		p.SpaceID = *spaceID
	}
	return &p, nil
}

func scanPageRows(rows pgx.Rows) ([]*domain.TypedPage, error) {
	var results []*domain.TypedPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

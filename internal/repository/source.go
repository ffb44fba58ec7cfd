package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sourceColumns = `id, name, type, origin, scope, workspace_id, space_id, status, error, chunk_count, last_synced_at, created_at, updated_at`

// SourceRepository handles persistence of knowledge sources.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx dbtx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.KnowledgeSource) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_sources (`+sourceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.Name, s.Type, s.Origin, s.Scope,
		nullableString(s.WorkspaceID), nullableString(s.SpaceID),
		s.Status, s.Error, s.ChunkCount, s.LastSyncedAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM knowledge_sources WHERE id = $1`,
		id,
	)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns sources visible to the caller: system-scoped, workspace-scoped
// matching the workspace, or space-scoped matching the space.
func (r *SourceRepository) List(ctx context.Context, filter service.SourceFilter) ([]*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + `
		 FROM knowledge_sources
		 WHERE (scope = 'system'
		    OR (scope = 'workspace' AND workspace_id = $1)
		    OR (scope = 'space' AND space_id = $2))`
	args := []any{nullableString(filter.WorkspaceID), nullableString(filter.SpaceID)}

	if filter.Scope != "" {
		args = append(args, filter.Scope)
		query += fmt.Sprintf(` AND scope = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

// ListRefreshable returns url and page sources, the only types that can be
// re-ingested without the caller supplying content. An empty workspaceID
// returns every workspace's refreshable sources (scheduler sweep); otherwise
// results are limited to sources owned by that workspace.
func (r *SourceRepository) ListRefreshable(ctx context.Context, workspaceID string) ([]*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + `
		 FROM knowledge_sources
		 WHERE type IN ('url', 'page')`
	args := []any{}

	if workspaceID != "" {
		args = append(args, workspaceID)
		query += ` AND workspace_id = $1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

// UpdateStatus moves a source to the given status without touching the
// error/chunk bookkeeping. Used for the pending -> processing transition.
func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// MarkReady records a successful ingestion run: chunk count and sync time
// are set and any previous error is cleared.
func (r *SourceRepository) MarkReady(ctx context.Context, id string, chunkCount int, syncedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET status = 'ready', chunk_count = $1, last_synced_at = $2, error = '', updated_at = $3
		 WHERE id = $4`,
		chunkCount, syncedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// MarkError records a failed ingestion run with its message.
func (r *SourceRepository) MarkError(ctx context.Context, id string, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = 'error', error = $1, updated_at = $2 WHERE id = $3`,
		message, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_sources WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// ResetStuckProcessing flips sources left in 'processing' by a previous
// process to 'error'. Called once at boot; returns the number of rows swept.
func (r *SourceRepository) ResetStuckProcessing(ctx context.Context, message string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = 'error', error = $1, updated_at = $2 WHERE status = 'processing'`,
		message, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanSource(row pgx.Row) (*domain.KnowledgeSource, error) {
	var s domain.KnowledgeSource
	var workspaceID, spaceID *string
	err := row.Scan(
		&s.ID, &s.Name, &s.Type, &s.Origin, &s.Scope,
		&workspaceID, &spaceID,
		&s.Status, &s.Error, &s.ChunkCount, &s.LastSyncedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if workspaceID != nil {
		s.WorkspaceID = *workspaceID
	}
	if spaceID != nil {
		s.SpaceID = *spaceID
	}
	return &s, nil
}

func scanSourceRows(rows pgx.Rows) ([]*domain.KnowledgeSource, error) {
	var results []*domain.KnowledgeSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

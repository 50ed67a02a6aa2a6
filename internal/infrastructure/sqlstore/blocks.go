package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

const blockColumns = `id, page_id, type, content, position, is_deleted, deleted_at, created_at, updated_at`

func scanBlock(row scanner) (*domain.Block, error) {
	b := &domain.Block{}
	var content string
	var deletedAt sql.NullTime
	err := row.Scan(
		&b.ID,
		&b.PageID,
		&b.Type,
		&content,
		&b.Position,
		&b.IsDeleted,
		&deletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Content = json.RawMessage(content)
	b.DeletedAt = timePtr(deletedAt)
	return b, nil
}

func (s *Store) CreateBlock(ctx context.Context, b *domain.Block) error {
	ctx, span, cancel := s.start(ctx, "CreateBlock",
		attribute.String("block.id", b.ID),
		attribute.String("page.id", b.PageID),
		attribute.Int("position", b.Position),
	)
	defer cancel()
	defer span.End()

	query := `
		INSERT INTO blocks (id, page_id, type, content, position, is_deleted, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.q.ExecContext(ctx, query,
		b.ID,
		b.PageID,
		string(b.Type),
		string(b.Content),
		b.Position,
		b.IsDeleted,
		nullTime(b.DeletedAt),
		b.CreatedAt.UTC(),
		b.UpdatedAt.UTC(),
	)
	if err != nil {
		return fail(span, "create block", err)
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id string) (*domain.Block, error) {
	ctx, span, cancel := s.start(ctx, "GetBlock", attribute.String("block.id", id))
	defer cancel()
	defer span.End()

	query := `SELECT ` + blockColumns + ` FROM blocks WHERE id = $1`

	b, err := scanBlock(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrBlockNotFound
		}
		return nil, fail(span, "get block", err)
	}
	return b, nil
}

func (s *Store) UpdateBlock(ctx context.Context, b *domain.Block) error {
	ctx, span, cancel := s.start(ctx, "UpdateBlock", attribute.String("block.id", b.ID))
	defer cancel()
	defer span.End()

	query := `UPDATE blocks SET type = $2, content = $3, updated_at = $4 WHERE id = $1`

	res, err := s.q.ExecContext(ctx, query, b.ID, string(b.Type), string(b.Content), b.UpdatedAt.UTC())
	if err != nil {
		return fail(span, "update block", err)
	}
	return mustAffect(res, domain.ErrBlockNotFound)
}

func (s *Store) ListBlocks(ctx context.Context, pageID, search string) ([]*domain.Block, error) {
	ctx, span, cancel := s.start(ctx, "ListBlocks",
		attribute.String("page.id", pageID),
		attribute.Bool("search", search != ""),
	)
	defer cancel()
	defer span.End()

	query := `SELECT ` + blockColumns + ` FROM blocks WHERE page_id = $1 AND is_deleted = FALSE`
	args := []any{pageID}
	if search != "" {
		query += ` AND LOWER(CAST(content AS TEXT)) LIKE LOWER(CAST($2 AS TEXT)) ESCAPE '\'`
		args = append(args, likePattern(search))
	}
	query += ` ORDER BY position ASC, created_at ASC, id ASC`

	blocks, err := s.queryBlocks(ctx, query, args...)
	if err != nil {
		return nil, fail(span, "list blocks", err)
	}
	return blocks, nil
}

func (s *Store) ListTrashedBlocks(ctx context.Context, pageID string) ([]*domain.Block, error) {
	ctx, span, cancel := s.start(ctx, "ListTrashedBlocks", attribute.String("page.id", pageID))
	defer cancel()
	defer span.End()

	query := `SELECT ` + blockColumns + `
		FROM blocks
		WHERE page_id = $1 AND is_deleted = TRUE
		ORDER BY position ASC, created_at ASC, id ASC`

	blocks, err := s.queryBlocks(ctx, query, pageID)
	if err != nil {
		return nil, fail(span, "list trashed blocks", err)
	}
	return blocks, nil
}

func (s *Store) SetBlockDeleted(ctx context.Context, id string, deletedAt *time.Time) error {
	ctx, span, cancel := s.start(ctx, "SetBlockDeleted",
		attribute.String("block.id", id),
		attribute.Bool("deleted", deletedAt != nil),
	)
	defer cancel()
	defer span.End()

	query := `UPDATE blocks SET is_deleted = $2, deleted_at = $3 WHERE id = $1`

	res, err := s.q.ExecContext(ctx, query, id, deletedAt != nil, nullTime(deletedAt))
	if err != nil {
		return fail(span, "set block deleted", err)
	}
	return mustAffect(res, domain.ErrBlockNotFound)
}

func (s *Store) SetPageBlocksDeleted(ctx context.Context, pageID string, deletedAt *time.Time) (int64, error) {
	ctx, span, cancel := s.start(ctx, "SetPageBlocksDeleted",
		attribute.String("page.id", pageID),
		attribute.Bool("deleted", deletedAt != nil),
	)
	defer cancel()
	defer span.End()

	var res sql.Result
	var err error
	if deletedAt != nil {
		res, err = s.q.ExecContext(ctx,
			`UPDATE blocks SET is_deleted = TRUE, deleted_at = $2 WHERE page_id = $1 AND is_deleted = FALSE`,
			pageID, deletedAt.UTC())
	} else {
		res, err = s.q.ExecContext(ctx,
			`UPDATE blocks SET is_deleted = FALSE, deleted_at = NULL WHERE page_id = $1 AND is_deleted = TRUE`,
			pageID)
	}
	if err != nil {
		return 0, fail(span, "cascade block state", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail(span, "cascade block state", err)
	}
	span.SetAttributes(attribute.Int64("rows", n))
	return n, nil
}

func (s *Store) PurgeBlock(ctx context.Context, id string) error {
	ctx, span, cancel := s.start(ctx, "PurgeBlock", attribute.String("block.id", id))
	defer cancel()
	defer span.End()

	res, err := s.q.ExecContext(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fail(span, "delete block", err)
	}
	return mustAffect(res, domain.ErrBlockNotFound)
}

func (s *Store) queryBlocks(ctx context.Context, query string, args ...any) ([]*domain.Block, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []*domain.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

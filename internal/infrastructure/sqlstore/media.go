package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

const mediaColumns = `id, user_id, object_key, url, content_type, size, folder, original_name, created_at`

func scanMedia(row scanner) (*domain.Media, error) {
	m := &domain.Media{}
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Key,
		&m.URL,
		&m.ContentType,
		&m.Size,
		&m.Folder,
		&m.OriginalName,
		&m.CreatedAt,
	)
	return m, err
}

func (s *Store) CreateMedia(ctx context.Context, m *domain.Media) error {
	ctx, span, cancel := s.start(ctx, "CreateMedia",
		attribute.String("media.id", m.ID),
		attribute.String("media.key", m.Key),
	)
	defer cancel()
	defer span.End()

	query := `
		INSERT INTO media (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.q.ExecContext(ctx, query,
		m.ID,
		m.UserID,
		m.Key,
		m.URL,
		m.ContentType,
		m.Size,
		m.Folder,
		m.OriginalName,
		m.CreatedAt.UTC(),
	)
	if err != nil {
		return fail(span, "create media", err)
	}
	return nil
}

func (s *Store) GetMedia(ctx context.Context, id string) (*domain.Media, error) {
	ctx, span, cancel := s.start(ctx, "GetMedia", attribute.String("media.id", id))
	defer cancel()
	defer span.End()

	m, err := scanMedia(s.q.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrMediaNotFound
		}
		return nil, fail(span, "get media", err)
	}
	return m, nil
}

func (s *Store) ListMedia(ctx context.Context, userID string) ([]*domain.Media, error) {
	ctx, span, cancel := s.start(ctx, "ListMedia", attribute.String("user.id", userID))
	defer cancel()
	defer span.End()

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fail(span, "list media", err)
	}
	defer rows.Close()

	items := []*domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fail(span, "scan media", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "list media", err)
	}
	return items, nil
}

func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	ctx, span, cancel := s.start(ctx, "DeleteMedia", attribute.String("media.id", id))
	defer cancel()
	defer span.End()

	res, err := s.q.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fail(span, "delete media", err)
	}
	return mustAffect(res, domain.ErrMediaNotFound)
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	ctx, span, cancel := s.start(ctx, "CreateTag",
		attribute.String("tag.id", t.ID),
		attribute.String("user.id", t.UserID),
	)
	defer cancel()
	defer span.End()

	query := `INSERT INTO tags (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := s.q.ExecContext(ctx, query, t.ID, t.UserID, t.Name, t.CreatedAt.UTC()); err != nil {
		return fail(span, "create tag", err)
	}
	return nil
}

func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	ctx, span, cancel := s.start(ctx, "GetTag", attribute.String("tag.id", id))
	defer cancel()
	defer span.End()

	query := `
		SELECT t.id, t.user_id, t.name, t.created_at, COUNT(pt.page_id)
		FROM tags t
		LEFT JOIN page_tags pt ON pt.tag_id = t.id
		WHERE t.id = $1
		GROUP BY t.id, t.user_id, t.name, t.created_at
	`

	t := &domain.Tag{}
	err := s.q.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.PageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrTagNotFound
		}
		return nil, fail(span, "get tag", err)
	}
	return t, nil
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	ctx, span, cancel := s.start(ctx, "ListTags", attribute.String("user.id", userID))
	defer cancel()
	defer span.End()

	query := `
		SELECT t.id, t.user_id, t.name, t.created_at, COUNT(pt.page_id)
		FROM tags t
		LEFT JOIN page_tags pt ON pt.tag_id = t.id
		WHERE t.user_id = $1
		GROUP BY t.id, t.user_id, t.name, t.created_at
		ORDER BY t.name ASC
	`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fail(span, "list tags", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t := &domain.Tag{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.PageCount); err != nil {
			return nil, fail(span, "scan tag", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "list tags", err)
	}
	return tags, nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	ctx, span, cancel := s.start(ctx, "DeleteTag", attribute.String("tag.id", id))
	defer cancel()
	defer span.End()

	if _, err := s.q.ExecContext(ctx, `DELETE FROM page_tags WHERE tag_id = $1`, id); err != nil {
		return fail(span, "delete tag links", err)
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fail(span, "delete tag", err)
	}
	return mustAffect(res, domain.ErrTagNotFound)
}

func (s *Store) AttachTag(ctx context.Context, pageID, tagID string) error {
	ctx, span, cancel := s.start(ctx, "AttachTag",
		attribute.String("page.id", pageID),
		attribute.String("tag.id", tagID),
	)
	defer cancel()
	defer span.End()

	query := `INSERT INTO page_tags (page_id, tag_id, created_at) VALUES ($1, $2, CURRENT_TIMESTAMP)`

	if _, err := s.q.ExecContext(ctx, query, pageID, tagID); err != nil {
		return fail(span, "attach tag", err)
	}
	return nil
}

func (s *Store) DetachTag(ctx context.Context, pageID, tagID string) error {
	ctx, span, cancel := s.start(ctx, "DetachTag",
		attribute.String("page.id", pageID),
		attribute.String("tag.id", tagID),
	)
	defer cancel()
	defer span.End()

	res, err := s.q.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id = $1 AND tag_id = $2`, pageID, tagID)
	if err != nil {
		return fail(span, "detach tag", err)
	}
	return mustAffect(res, domain.ErrTagNotOnPage)
}

func (s *Store) ListPageTags(ctx context.Context, pageID string) ([]*domain.Tag, error) {
	ctx, span, cancel := s.start(ctx, "ListPageTags", attribute.String("page.id", pageID))
	defer cancel()
	defer span.End()

	query := `
		SELECT t.id, t.user_id, t.name, t.created_at
		FROM page_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.page_id = $1
		ORDER BY t.name ASC
	`

	rows, err := s.q.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, fail(span, "list page tags", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t := &domain.Tag{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fail(span, "scan tag", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "list page tags", err)
	}
	return tags, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

const pageColumns = `p.id, p.user_id, p.title, p.position, p.is_deleted, p.deleted_at, p.created_at, p.updated_at`

var pageSortColumns = map[domain.PageSort]string{
	domain.SortUpdatedAt: "p.updated_at",
	domain.SortCreatedAt: "p.created_at",
	domain.SortTitle:     "p.title",
	domain.SortPosition:  "p.position",
}

func scanPage(row scanner) (*domain.Page, error) {
	p := &domain.Page{}
	var deletedAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Position,
		&p.IsDeleted,
		&deletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.DeletedAt = timePtr(deletedAt)
	return p, nil
}

func (s *Store) CreatePage(ctx context.Context, p *domain.Page) error {
	ctx, span, cancel := s.start(ctx, "CreatePage",
		attribute.String("page.id", p.ID),
		attribute.String("user.id", p.UserID),
	)
	defer cancel()
	defer span.End()

	query := `
		INSERT INTO pages (id, user_id, title, position, is_deleted, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.q.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.Title,
		p.Position,
		p.IsDeleted,
		nullTime(p.DeletedAt),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fail(span, "create page", err)
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	ctx, span, cancel := s.start(ctx, "GetPage", attribute.String("page.id", id))
	defer cancel()
	defer span.End()

	query := `SELECT ` + pageColumns + ` FROM pages p WHERE p.id = $1`

	p, err := scanPage(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrPageNotFound
		}
		return nil, fail(span, "get page", err)
	}
	return p, nil
}

func (s *Store) UpdatePage(ctx context.Context, p *domain.Page) error {
	ctx, span, cancel := s.start(ctx, "UpdatePage", attribute.String("page.id", p.ID))
	defer cancel()
	defer span.End()

	query := `UPDATE pages SET title = $2, updated_at = $3 WHERE id = $1`

	res, err := s.q.ExecContext(ctx, query, p.ID, p.Title, p.UpdatedAt.UTC())
	if err != nil {
		return fail(span, "update page", err)
	}
	return mustAffect(res, domain.ErrPageNotFound)
}

func (s *Store) ListPages(ctx context.Context, f *domain.PageFilter) ([]*domain.Page, error) {
	ctx, span, cancel := s.start(ctx, "ListPages",
		attribute.String("user.id", f.UserID),
		attribute.String("sort_by", string(f.SortBy)),
		attribute.Int("tag_count", len(f.TagIDs)),
	)
	defer cancel()
	defer span.End()

	args := []any{f.UserID}
	where := []string{"p.user_id = $1", "p.is_deleted = FALSE"}

	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		where = append(where, fmt.Sprintf(`LOWER(p.title) LIKE LOWER(CAST($%d AS TEXT)) ESCAPE '\'`, len(args)))
	}

	if len(f.TagIDs) > 0 {
		where = append(where, fmt.Sprintf(
			"p.id IN (SELECT pt.page_id FROM page_tags pt WHERE pt.tag_id IN (%s))",
			placeholders(len(args)+1, len(f.TagIDs)),
		))
		for _, id := range f.TagIDs {
			args = append(args, id)
		}
	}

	column, ok := pageSortColumns[f.SortBy]
	if !ok {
		column = pageSortColumns[domain.SortUpdatedAt]
	}
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM pages p WHERE %s ORDER BY %s %s, p.id ASC`,
		pageColumns, strings.Join(where, " AND "), column, direction)

	pages, err := s.queryPages(ctx, query, args...)
	if err != nil {
		return nil, fail(span, "list pages", err)
	}
	if err := s.attachTags(ctx, pages); err != nil {
		return nil, fail(span, "load page tags", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(pages)))
	return pages, nil
}

func (s *Store) ListTrashedPages(ctx context.Context, userID string) ([]*domain.Page, error) {
	ctx, span, cancel := s.start(ctx, "ListTrashedPages", attribute.String("user.id", userID))
	defer cancel()
	defer span.End()

	query := `SELECT ` + pageColumns + `
		FROM pages p
		WHERE p.user_id = $1 AND p.is_deleted = TRUE
		ORDER BY p.deleted_at DESC, p.id ASC`

	pages, err := s.queryPages(ctx, query, userID)
	if err != nil {
		return nil, fail(span, "list trashed pages", err)
	}
	if err := s.attachTags(ctx, pages); err != nil {
		return nil, fail(span, "load page tags", err)
	}
	return pages, nil
}

func (s *Store) SetPageDeleted(ctx context.Context, id string, deletedAt *time.Time) error {
	ctx, span, cancel := s.start(ctx, "SetPageDeleted",
		attribute.String("page.id", id),
		attribute.Bool("deleted", deletedAt != nil),
	)
	defer cancel()
	defer span.End()

	query := `UPDATE pages SET is_deleted = $2, deleted_at = $3 WHERE id = $1`

	res, err := s.q.ExecContext(ctx, query, id, deletedAt != nil, nullTime(deletedAt))
	if err != nil {
		return fail(span, "set page deleted", err)
	}
	return mustAffect(res, domain.ErrPageNotFound)
}

func (s *Store) PurgePage(ctx context.Context, id string) error {
	ctx, span, cancel := s.start(ctx, "PurgePage", attribute.String("page.id", id))
	defer cancel()
	defer span.End()

	if _, err := s.q.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id = $1`, id); err != nil {
		return fail(span, "delete page tags", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM blocks WHERE page_id = $1`, id); err != nil {
		return fail(span, "delete page blocks", err)
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fail(span, "delete page", err)
	}
	return mustAffect(res, domain.ErrPageNotFound)
}

func (s *Store) SearchPages(ctx context.Context, userID, query string, limit int) ([]*domain.Page, error) {
	ctx, span, cancel := s.start(ctx, "SearchPages",
		attribute.String("user.id", userID),
		attribute.Int("limit", limit),
	)
	defer cancel()
	defer span.End()

	q := `SELECT ` + pageColumns + `
		FROM pages p
		WHERE p.user_id = $1 AND p.is_deleted = FALSE
		AND (
			LOWER(p.title) LIKE LOWER(CAST($2 AS TEXT)) ESCAPE '\'
			OR EXISTS (
				SELECT 1 FROM blocks b
				WHERE b.page_id = p.id AND b.is_deleted = FALSE
				AND LOWER(CAST(b.content AS TEXT)) LIKE LOWER(CAST($2 AS TEXT)) ESCAPE '\'
			)
		)
		ORDER BY p.updated_at DESC, p.id ASC
		LIMIT $3`

	pages, err := s.queryPages(ctx, q, userID, likePattern(query), limit)
	if err != nil {
		return nil, fail(span, "search pages", err)
	}
	if err := s.attachTags(ctx, pages); err != nil {
		return nil, fail(span, "load page tags", err)
	}
	return pages, nil
}

func (s *Store) queryPages(ctx context.Context, query string, args ...any) ([]*domain.Page, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// attachTags loads the tags of every page in one query.
func (s *Store) attachTags(ctx context.Context, pages []*domain.Page) error {
	if len(pages) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Page, len(pages))
	args := make([]any, len(pages))
	for i, p := range pages {
		byID[p.ID] = p
		p.Tags = []*domain.Tag{}
		args[i] = p.ID
	}

	query := fmt.Sprintf(`
		SELECT pt.page_id, t.id, t.user_id, t.name, t.created_at
		FROM page_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.page_id IN (%s)
		ORDER BY t.name ASC`, placeholders(1, len(args)))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var pageID string
		t := &domain.Tag{}
		if err := rows.Scan(&pageID, &t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return err
		}
		if p, ok := byID[pageID]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	return rows.Err()
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

func (s *Store) EnsureUser(ctx context.Context, u *domain.User) error {
	ctx, span, cancel := s.start(ctx, "EnsureUser", attribute.String("user.id", u.ID))
	defer cancel()
	defer span.End()

	query := `
		INSERT INTO users (id, email, name, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.q.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.Avatar,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fail(span, "ensure user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span, cancel := s.start(ctx, "GetUser", attribute.String("user.id", id))
	defer cancel()
	defer span.End()

	query := `
		SELECT id, email, name, avatar, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u := &domain.User{}
	var avatar sql.NullString
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrUserNotFound
		}
		return nil, fail(span, "get user", err)
	}

	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	ctx, span, cancel := s.start(ctx, "UpdateUser", attribute.String("user.id", u.ID))
	defer cancel()
	defer span.End()

	query := `
		UPDATE users
		SET name = $2, avatar = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := s.q.ExecContext(ctx, query, u.ID, u.Name, u.Avatar, u.UpdatedAt.UTC())
	if err != nil {
		return fail(span, "update user", err)
	}
	return mustAffect(res, domain.ErrUserNotFound)
}

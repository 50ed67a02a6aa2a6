package app

import (
	"context"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/pkg/auth"
	"go.uber.org/zap"
)

// SyncUser makes sure a profile row exists for the verified identity and
// returns it. Existing rows are left untouched.
func (s *Service) SyncUser(ctx context.Context, id *auth.Identity) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "SyncUser")
	defer span.End()

	user, err := domain.NewUser(id.UserID, id.Email, id.DisplayName(), id.AvatarURL())
	if err != nil {
		return nil, err
	}
	if err := s.repo.EnsureUser(ctx, user); err != nil {
		span.RecordError(err)
		s.logFailure("failed to sync user", err, zap.String("user_id", id.UserID))
		return nil, err
	}
	return s.repo.GetUser(ctx, id.UserID)
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "GetProfile")
	defer span.End()

	return s.repo.GetUser(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, name, avatar *string) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(name, avatar); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		span.RecordError(err)
		s.logFailure("failed to update profile", err, zap.String("user_id", userID))
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("user_id", userID))
	return user, nil
}

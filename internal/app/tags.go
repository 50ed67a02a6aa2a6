package app

import (
	"context"
	"errors"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *Service) CreateTag(ctx context.Context, userID, name string) (*domain.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTag")
	defer span.End()

	tag, err := domain.NewTag(userID, name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrTagExists
		}
		span.RecordError(err)
		s.logFailure("failed to create tag", err, zap.String("user_id", userID))
		return nil, err
	}

	s.logger.Info("tag created", zap.String("tag_id", tag.ID), zap.String("name", tag.Name))
	return tag, nil
}

// ListTags returns the user's tags by name with their page counts.
func (s *Service) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "ListTags")
	defer span.End()

	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to list tags", err, zap.String("user_id", userID))
		return nil, err
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

func (s *Service) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "GetTag")
	defer span.End()

	return ownedTag(ctx, s.repo, userID, tagID)
}

func (s *Service) DeleteTag(ctx context.Context, userID, tagID string) error {
	ctx, span := s.tracer.Start(ctx, "DeleteTag")
	defer span.End()

	span.SetAttributes(attribute.String("tag.id", tagID))

	if _, err := ownedTag(ctx, s.repo, userID, tagID); err != nil {
		return err
	}
	if err := s.repo.DeleteTag(ctx, tagID); err != nil {
		span.RecordError(err)
		s.logFailure("failed to delete tag", err, zap.String("tag_id", tagID))
		return err
	}

	s.logger.Info("tag deleted", zap.String("tag_id", tagID))
	return nil
}

func (s *Service) AttachTag(ctx context.Context, userID, pageID, tagID string) error {
	ctx, span := s.tracer.Start(ctx, "AttachTag")
	defer span.End()

	span.SetAttributes(
		attribute.String("page.id", pageID),
		attribute.String("tag.id", tagID),
	)

	if _, err := ownedPage(ctx, s.repo, userID, pageID); err != nil {
		return err
	}
	if _, err := ownedTag(ctx, s.repo, userID, tagID); err != nil {
		return err
	}

	if err := s.repo.AttachTag(ctx, pageID, tagID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrTagAlreadyOnPage
		}
		span.RecordError(err)
		s.logFailure("failed to attach tag", err, zap.String("page_id", pageID), zap.String("tag_id", tagID))
		return err
	}

	s.logger.Info("tag attached", zap.String("page_id", pageID), zap.String("tag_id", tagID))
	return nil
}

func (s *Service) DetachTag(ctx context.Context, userID, pageID, tagID string) error {
	ctx, span := s.tracer.Start(ctx, "DetachTag")
	defer span.End()

	if _, err := ownedPage(ctx, s.repo, userID, pageID); err != nil {
		return err
	}
	if _, err := ownedTag(ctx, s.repo, userID, tagID); err != nil {
		return err
	}

	if err := s.repo.DetachTag(ctx, pageID, tagID); err != nil {
		s.logFailure("failed to detach tag", err, zap.String("page_id", pageID), zap.String("tag_id", tagID))
		return err
	}

	s.logger.Info("tag detached", zap.String("page_id", pageID), zap.String("tag_id", tagID))
	return nil
}

func (s *Service) ListPageTags(ctx context.Context, userID, pageID string) ([]*domain.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "ListPageTags")
	defer span.End()

	if _, err := ownedPage(ctx, s.repo, userID, pageID); err != nil {
		return nil, err
	}

	tags, err := s.repo.ListPageTags(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

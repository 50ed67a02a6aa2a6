package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ErrStorageDisabled = errors.New("object storage is not configured")

// Upload is one file of a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *Service) MaxUploadBytes() int64 { return s.maxUpload }

func (s *Service) UploadFile(ctx context.Context, userID, folder string, up Upload) (*domain.Media, error) {
	ctx, span := s.tracer.Start(ctx, "UploadFile")
	defer span.End()

	if s.blobs == nil {
		return nil, ErrStorageDisabled
	}

	media, err := domain.NewMedia(userID, folder, up.Name, up.ContentType, up.Size, s.maxUpload)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("media.key", media.Key))

	url, err := s.blobs.Put(ctx, media.Key, up.Body, up.Size, media.ContentType)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to store object", err, zap.String("key", media.Key))
		return nil, fmt.Errorf("store object: %w", err)
	}
	media.URL = url

	if err := s.repo.CreateMedia(ctx, media); err != nil {
		if delErr := s.blobs.Delete(ctx, media.Key); delErr != nil {
			s.logger.Warn("failed to remove orphaned object", zap.String("key", media.Key), zap.Error(delErr))
		}
		span.RecordError(err)
		s.logFailure("failed to record upload", err, zap.String("key", media.Key))
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("media_id", media.ID),
		zap.String("key", media.Key),
		zap.Int64("size", media.Size),
	)
	return media, nil
}

// UploadFiles validates every file before storing any of them.
func (s *Service) UploadFiles(ctx context.Context, userID, folder string, ups []Upload) ([]*domain.Media, error) {
	if len(ups) == 0 {
		return nil, domain.ErrNoFiles
	}
	if len(ups) > domain.MaxFilesPerUpload {
		return nil, domain.ErrTooManyFiles
	}
	for _, up := range ups {
		if _, err := domain.NewMedia(userID, folder, up.Name, up.ContentType, up.Size, s.maxUpload); err != nil {
			return nil, fmt.Errorf("%s: %w", up.Name, err)
		}
	}

	out := make([]*domain.Media, 0, len(ups))
	for _, up := range ups {
		m, err := s.UploadFile(ctx, userID, folder, up)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) ListMedia(ctx context.Context, userID string) ([]*domain.Media, error) {
	ctx, span := s.tracer.Start(ctx, "ListMedia")
	defer span.End()

	media, err := s.repo.ListMedia(ctx, userID)
	if err != nil {
		s.logFailure("failed to list media", err, zap.String("user_id", userID))
		return nil, err
	}
	if media == nil {
		media = []*domain.Media{}
	}
	return media, nil
}

// DeleteMedia removes the object, then the record.
func (s *Service) DeleteMedia(ctx context.Context, userID, mediaID string) error {
	ctx, span := s.tracer.Start(ctx, "DeleteMedia")
	defer span.End()

	span.SetAttributes(attribute.String("media.id", mediaID))

	media, err := s.repo.GetMedia(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := media.OwnedBy(userID); err != nil {
		return err
	}

	if s.blobs == nil {
		return ErrStorageDisabled
	}
	if err := s.blobs.Delete(ctx, media.Key); err != nil {
		span.RecordError(err)
		s.logFailure("failed to delete object", err, zap.String("key", media.Key))
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.repo.DeleteMedia(ctx, mediaID); err != nil {
		s.logFailure("failed to delete media record", err, zap.String("media_id", mediaID))
		return err
	}

	s.logger.Info("file deleted", zap.String("media_id", mediaID), zap.String("key", media.Key))
	return nil
}

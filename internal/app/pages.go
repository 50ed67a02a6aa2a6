package app

import (
	"context"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/internal/ordering"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *Service) CreatePage(ctx context.Context, userID, title string) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "CreatePage")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID))

	page, err := domain.NewPage(userID, title)
	if err != nil {
		return nil, err
	}

	err = s.serialized(ctx, []parent{{ordering.Pages, userID}}, func(ctx context.Context, tx domain.Repository) error {
		pos, n, err := ordering.Open(ctx, tx.Slots(ordering.Pages), userID, nil)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Pages), "create", n)

		page.Position = pos
		return tx.CreatePage(ctx, page)
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to create page", err, zap.String("user_id", userID))
		return nil, err
	}

	page.Blocks = []*domain.Block{}
	page.Tags = []*domain.Tag{}
	s.reindexPage(ctx, page, page.Blocks)

	s.logger.Info("page created",
		zap.String("page_id", page.ID),
		zap.String("user_id", userID),
		zap.Int("position", page.Position),
	)
	return page, nil
}

func (s *Service) ListPages(ctx context.Context, filter *domain.PageFilter) ([]*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "ListPages")
	defer span.End()

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", filter.UserID))

	pages, err := s.repo.ListPages(ctx, filter)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to list pages", err, zap.String("user_id", filter.UserID))
		return nil, err
	}
	if pages == nil {
		pages = []*domain.Page{}
	}
	return pages, nil
}

// GetPage returns the page with its active blocks and tags.
func (s *Service) GetPage(ctx context.Context, userID, pageID string) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "GetPage")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("page.id", pageID),
	)

	page, err := ownedPage(ctx, s.repo, userID, pageID)
	if err != nil {
		return nil, err
	}
	if err := s.loadPageChildren(ctx, page); err != nil {
		span.RecordError(err)
		s.logFailure("failed to load page", err, zap.String("page_id", pageID))
		return nil, err
	}
	return page, nil
}

func (s *Service) UpdatePage(ctx context.Context, userID, pageID string, title *string) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "UpdatePage")
	defer span.End()

	span.SetAttributes(attribute.String("page.id", pageID))

	page, err := ownedPage(ctx, s.repo, userID, pageID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		if err := page.Rename(*title); err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePage(ctx, page); err != nil {
			span.RecordError(err)
			s.logFailure("failed to update page", err, zap.String("page_id", pageID))
			return nil, err
		}
	}

	if err := s.loadPageChildren(ctx, page); err != nil {
		return nil, err
	}
	if !page.IsDeleted {
		s.reindexPage(ctx, page, page.Blocks)
	}

	s.logger.Info("page updated", zap.String("page_id", pageID), zap.String("user_id", userID))
	return page, nil
}

// DeletePage moves the page and its active blocks to the trash and closes
// the gap in the user's page list.
func (s *Service) DeletePage(ctx context.Context, userID, pageID string) error {
	ctx, span := s.tracer.Start(ctx, "DeletePage")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("page.id", pageID),
	)

	err := s.serialized(ctx, []parent{{ordering.Pages, userID}}, func(ctx context.Context, tx domain.Repository) error {
		page, err := ownedPage(ctx, tx, userID, pageID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := page.Trash(now); err != nil {
			return err
		}
		if err := tx.SetPageDeleted(ctx, pageID, &now); err != nil {
			return err
		}
		if _, err := tx.SetPageBlocksDeleted(ctx, pageID, &now); err != nil {
			return err
		}

		n, err := ordering.Repair(ctx, tx.Slots(ordering.Pages), userID, page.Position)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Pages), "delete", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to delete page", err, zap.String("page_id", pageID))
		return err
	}

	s.unindexPage(ctx, pageID)
	s.logger.Info("page moved to trash", zap.String("page_id", pageID), zap.String("user_id", userID))
	return nil
}

// RestorePage brings a trashed page and all its trashed blocks back.
func (s *Service) RestorePage(ctx context.Context, userID, pageID string) error {
	ctx, span := s.tracer.Start(ctx, "RestorePage")
	defer span.End()

	span.SetAttributes(attribute.String("page.id", pageID))

	err := s.serialized(ctx, []parent{{ordering.Pages, userID}}, func(ctx context.Context, tx domain.Repository) error {
		page, err := ownedPage(ctx, tx, userID, pageID)
		if err != nil {
			return err
		}
		if err := page.Restore(); err != nil {
			return err
		}

		slots := tx.Slots(ordering.Pages)
		target, err := s.restoreTarget(ctx, slots, userID)
		if err != nil {
			return err
		}

		if err := tx.SetPageDeleted(ctx, pageID, nil); err != nil {
			return err
		}
		if _, err := tx.SetPageBlocksDeleted(ctx, pageID, nil); err != nil {
			return err
		}

		if target >= 0 {
			n, err := slots.Move(ctx, userID, []ordering.Slot{{ID: pageID, Position: target}})
			if err != nil {
				return err
			}
			recordPositionWrites(string(ordering.Pages), "restore", n)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to restore page", err, zap.String("page_id", pageID))
		return err
	}

	s.reindexPageByID(ctx, pageID)
	s.logger.Info("page restored", zap.String("page_id", pageID), zap.String("user_id", userID))
	return nil
}

// PurgePage hard deletes a trashed page with its blocks and tag links.
func (s *Service) PurgePage(ctx context.Context, userID, pageID string) error {
	ctx, span := s.tracer.Start(ctx, "PurgePage")
	defer span.End()

	span.SetAttributes(attribute.String("page.id", pageID))

	parents := []parent{{ordering.Pages, userID}, {ordering.Blocks, pageID}}
	err := s.serialized(ctx, parents, func(ctx context.Context, tx domain.Repository) error {
		page, err := ownedPage(ctx, tx, userID, pageID)
		if err != nil {
			return err
		}
		if err := page.CanPurge(); err != nil {
			return err
		}
		if err := tx.PurgePage(ctx, pageID); err != nil {
			return err
		}

		n, err := ordering.Normalize(ctx, tx.Slots(ordering.Pages), userID)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Pages), "purge", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to purge page", err, zap.String("page_id", pageID))
		return err
	}

	s.unindexPage(ctx, pageID)
	s.logger.Info("page permanently deleted", zap.String("page_id", pageID), zap.String("user_id", userID))
	return nil
}

// ReorderPages sets the user's page order and returns the active pages by
// position.
func (s *Service) ReorderPages(ctx context.Context, userID string, pageIDs []string) ([]*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "ReorderPages")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("count", len(pageIDs)),
	)

	if len(pageIDs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	var pages []*domain.Page
	err := s.serialized(ctx, []parent{{ordering.Pages, userID}}, func(ctx context.Context, tx domain.Repository) error {
		n, err := ordering.Assign(ctx, tx.Slots(ordering.Pages), userID, pageIDs)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Pages), "reorder", n)

		pages, err = tx.ListPages(ctx, &domain.PageFilter{
			UserID:    userID,
			SortBy:    domain.SortPosition,
			SortOrder: "asc",
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to reorder pages", err, zap.String("user_id", userID))
		return nil, err
	}
	if pages == nil {
		pages = []*domain.Page{}
	}
	return pages, nil
}

// ListTrash returns the user's trashed pages with their trashed blocks.
func (s *Service) ListTrash(ctx context.Context, userID string) ([]*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "ListTrash")
	defer span.End()

	pages, err := s.repo.ListTrashedPages(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to list trash", err, zap.String("user_id", userID))
		return nil, err
	}

	for _, p := range pages {
		blocks, err := s.repo.ListTrashedBlocks(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Blocks = blocks
	}
	if pages == nil {
		pages = []*domain.Page{}
	}
	return pages, nil
}

func (s *Service) loadPageChildren(ctx context.Context, page *domain.Page) error {
	blocks, err := s.repo.ListBlocks(ctx, page.ID, "")
	if err != nil {
		return err
	}
	tags, err := s.repo.ListPageTags(ctx, page.ID)
	if err != nil {
		return err
	}
	page.Blocks = blocks
	page.Tags = tags
	return nil
}

package app

import (
	"context"
	"encoding/json"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/internal/ordering"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CreateBlockInput struct {
	PageID  string
	Type    domain.BlockType
	Content json.RawMessage
	// Position is optional. Nil appends.
	Position *int
}

type UpdateBlockInput struct {
	Type    *domain.BlockType
	Content json.RawMessage
}

func (s *Service) CreateBlock(ctx context.Context, userID string, in CreateBlockInput) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "CreateBlock")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("page.id", in.PageID),
	)

	block, err := domain.NewBlock(in.PageID, in.Type, in.Content)
	if err != nil {
		return nil, err
	}

	err = s.serialized(ctx, []parent{{ordering.Blocks, in.PageID}}, func(ctx context.Context, tx domain.Repository) error {
		if _, err := ownedPage(ctx, tx, userID, in.PageID); err != nil {
			return err
		}

		pos, n, err := ordering.Open(ctx, tx.Slots(ordering.Blocks), in.PageID, in.Position)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Blocks), "create", n)

		block.Position = pos
		return tx.CreateBlock(ctx, block)
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to create block", err, zap.String("page_id", in.PageID))
		return nil, err
	}

	s.reindexPageByID(ctx, in.PageID)
	s.logger.Info("block created",
		zap.String("block_id", block.ID),
		zap.String("page_id", in.PageID),
		zap.Int("position", block.Position),
	)
	return block, nil
}

// ListBlocks returns the page's active blocks in position order.
func (s *Service) ListBlocks(ctx context.Context, userID, pageID, search string) ([]*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "ListBlocks")
	defer span.End()

	span.SetAttributes(attribute.String("page.id", pageID))

	if pageID == "" {
		return nil, domain.ErrInvalidPageID
	}
	if _, err := ownedPage(ctx, s.repo, userID, pageID); err != nil {
		return nil, err
	}

	blocks, err := s.repo.ListBlocks(ctx, pageID, search)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to list blocks", err, zap.String("page_id", pageID))
		return nil, err
	}
	return blocks, nil
}

func (s *Service) GetBlock(ctx context.Context, userID, blockID string) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "GetBlock")
	defer span.End()

	span.SetAttributes(attribute.String("block.id", blockID))

	block, _, err := ownedBlock(ctx, s.repo, userID, blockID)
	return block, err
}

func (s *Service) UpdateBlock(ctx context.Context, userID, blockID string, in UpdateBlockInput) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateBlock")
	defer span.End()

	span.SetAttributes(attribute.String("block.id", blockID))

	block, _, err := ownedBlock(ctx, s.repo, userID, blockID)
	if err != nil {
		return nil, err
	}
	if err := block.Apply(in.Type, in.Content); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBlock(ctx, block); err != nil {
		span.RecordError(err)
		s.logFailure("failed to update block", err, zap.String("block_id", blockID))
		return nil, err
	}

	s.reindexPageByID(ctx, block.PageID)
	s.logger.Info("block updated", zap.String("block_id", blockID))
	return block, nil
}

// DeleteBlock moves the block to the trash and closes its gap.
func (s *Service) DeleteBlock(ctx context.Context, userID, blockID string) error {
	ctx, span := s.tracer.Start(ctx, "DeleteBlock")
	defer span.End()

	span.SetAttributes(attribute.String("block.id", blockID))

	// resolve the page first so the right list is locked
	block, _, err := ownedBlock(ctx, s.repo, userID, blockID)
	if err != nil {
		return err
	}

	err = s.serialized(ctx, []parent{{ordering.Blocks, block.PageID}}, func(ctx context.Context, tx domain.Repository) error {
		block, _, err := ownedBlock(ctx, tx, userID, blockID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := block.Trash(now); err != nil {
			return err
		}
		if err := tx.SetBlockDeleted(ctx, blockID, &now); err != nil {
			return err
		}

		n, err := ordering.Repair(ctx, tx.Slots(ordering.Blocks), block.PageID, block.Position)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Blocks), "delete", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to delete block", err, zap.String("block_id", blockID))
		return err
	}

	s.reindexPageByID(ctx, block.PageID)
	s.logger.Info("block moved to trash", zap.String("block_id", blockID), zap.String("page_id", block.PageID))
	return nil
}

// RestoreBlock brings a trashed block back. Under RestoreKeep it keeps its
// stale position and the page is not repaired.
func (s *Service) RestoreBlock(ctx context.Context, userID, blockID string) error {
	ctx, span := s.tracer.Start(ctx, "RestoreBlock")
	defer span.End()

	span.SetAttributes(attribute.String("block.id", blockID))

	block, _, err := ownedBlock(ctx, s.repo, userID, blockID)
	if err != nil {
		return err
	}

	err = s.serialized(ctx, []parent{{ordering.Blocks, block.PageID}}, func(ctx context.Context, tx domain.Repository) error {
		block, _, err := ownedBlock(ctx, tx, userID, blockID)
		if err != nil {
			return err
		}
		if err := block.Restore(); err != nil {
			return err
		}

		slots := tx.Slots(ordering.Blocks)
		target, err := s.restoreTarget(ctx, slots, block.PageID)
		if err != nil {
			return err
		}
		if err := tx.SetBlockDeleted(ctx, blockID, nil); err != nil {
			return err
		}

		if target >= 0 {
			n, err := slots.Move(ctx, block.PageID, []ordering.Slot{{ID: blockID, Position: target}})
			if err != nil {
				return err
			}
			recordPositionWrites(string(ordering.Blocks), "restore", n)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to restore block", err, zap.String("block_id", blockID))
		return err
	}

	s.reindexPageByID(ctx, block.PageID)
	s.logger.Info("block restored", zap.String("block_id", blockID))
	return nil
}

// PurgeBlock hard deletes a trashed block and renumbers the page's active
// blocks.
func (s *Service) PurgeBlock(ctx context.Context, userID, blockID string) error {
	ctx, span := s.tracer.Start(ctx, "PurgeBlock")
	defer span.End()

	span.SetAttributes(attribute.String("block.id", blockID))

	block, _, err := ownedBlock(ctx, s.repo, userID, blockID)
	if err != nil {
		return err
	}

	err = s.serialized(ctx, []parent{{ordering.Blocks, block.PageID}}, func(ctx context.Context, tx domain.Repository) error {
		block, _, err := ownedBlock(ctx, tx, userID, blockID)
		if err != nil {
			return err
		}
		if err := block.CanPurge(); err != nil {
			return err
		}
		if err := tx.PurgeBlock(ctx, blockID); err != nil {
			return err
		}

		n, err := ordering.Normalize(ctx, tx.Slots(ordering.Blocks), block.PageID)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Blocks), "purge", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to purge block", err, zap.String("block_id", blockID))
		return err
	}

	s.logger.Info("block permanently deleted", zap.String("block_id", blockID))
	return nil
}

// ReorderBlocks sets the page's block order and returns its active blocks
// by position.
func (s *Service) ReorderBlocks(ctx context.Context, userID, pageID string, blockIDs []string) ([]*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "ReorderBlocks")
	defer span.End()

	span.SetAttributes(
		attribute.String("page.id", pageID),
		attribute.Int("count", len(blockIDs)),
	)

	if pageID == "" {
		return nil, domain.ErrInvalidPageID
	}
	if len(blockIDs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	var blocks []*domain.Block
	err := s.serialized(ctx, []parent{{ordering.Blocks, pageID}}, func(ctx context.Context, tx domain.Repository) error {
		if _, err := ownedPage(ctx, tx, userID, pageID); err != nil {
			return err
		}
		n, err := ordering.Assign(ctx, tx.Slots(ordering.Blocks), pageID, blockIDs)
		if err != nil {
			return err
		}
		recordPositionWrites(string(ordering.Blocks), "reorder", n)

		blocks, err = tx.ListBlocks(ctx, pageID, "")
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to reorder blocks", err, zap.String("page_id", pageID))
		return nil, err
	}
	return blocks, nil
}

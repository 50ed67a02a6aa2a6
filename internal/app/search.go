package app

import (
	"context"
	"strings"

	"github.com/dmehra2102/notely/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const searchLimit = 50

// Search returns the user's active pages matching query in the title or
// block text. The page index is preferred; the datastore answers when the
// index is missing or fails.
func (s *Service) Search(ctx context.Context, userID, query string) ([]*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	span.SetAttributes(attribute.String("user.id", userID))

	if s.index != nil {
		pages, err := s.searchIndex(ctx, userID, query)
		if err == nil {
			span.SetAttributes(attribute.String("search.source", "index"))
			return pages, nil
		}
		indexFailuresTotal.WithLabelValues("search").Inc()
		s.logger.Warn("page index search failed, using datastore", zap.Error(err))
	}

	span.SetAttributes(attribute.String("search.source", "datastore"))
	pages, err := s.repo.SearchPages(ctx, userID, query, searchLimit)
	if err != nil {
		span.RecordError(err)
		s.logFailure("failed to search pages", err, zap.String("user_id", userID))
		return nil, err
	}
	if pages == nil {
		pages = []*domain.Page{}
	}
	return pages, nil
}

// searchIndex resolves index hits against the datastore so stale hits for
// trashed, purged or foreign pages are dropped.
func (s *Service) searchIndex(ctx context.Context, userID, query string) ([]*domain.Page, error) {
	ids, err := s.index.SearchPages(ctx, userID, query, searchLimit)
	if err != nil {
		return nil, err
	}

	pages := make([]*domain.Page, 0, len(ids))
	for _, id := range ids {
		page, err := s.repo.GetPage(ctx, id)
		if err != nil {
			if domain.Kind(err) == domain.KindNotFound {
				continue
			}
			return nil, err
		}
		if page.IsDeleted || page.UserID != userID {
			continue
		}
		tags, err := s.repo.ListPageTags(ctx, id)
		if err != nil {
			return nil, err
		}
		page.Tags = tags
		pages = append(pages, page)
	}
	return pages, nil
}

func (s *Service) reindexPage(ctx context.Context, page *domain.Page, blocks []*domain.Block) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexPage(ctx, page, blocks); err != nil {
		indexFailuresTotal.WithLabelValues("index").Inc()
		s.logger.Warn("failed to index page", zap.String("page_id", page.ID), zap.Error(err))
	}
}

func (s *Service) reindexPageByID(ctx context.Context, pageID string) {
	if s.index == nil {
		return
	}
	page, err := s.repo.GetPage(ctx, pageID)
	if err != nil {
		s.logger.Warn("failed to load page for indexing", zap.String("page_id", pageID), zap.Error(err))
		return
	}
	if page.IsDeleted {
		s.unindexPage(ctx, pageID)
		return
	}
	blocks, err := s.repo.ListBlocks(ctx, pageID, "")
	if err != nil {
		s.logger.Warn("failed to load blocks for indexing", zap.String("page_id", pageID), zap.Error(err))
		return
	}
	s.reindexPage(ctx, page, blocks)
}

func (s *Service) unindexPage(ctx context.Context, pageID string) {
	if s.index == nil {
		return
	}
	if err := s.index.RemovePage(ctx, pageID); err != nil {
		indexFailuresTotal.WithLabelValues("remove").Inc()
		s.logger.Warn("failed to remove page from index", zap.String("page_id", pageID), zap.Error(err))
	}
}

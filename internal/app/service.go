package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/internal/ordering"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultLockWait = 10 * time.Second

// RestorePolicy decides where a restored item lands.
type RestorePolicy string

const (
	// RestoreKeep leaves the item at its last position. The parent may hold
	// a duplicate position until the next reorder.
	RestoreKeep RestorePolicy = "keep"
	// RestoreAppend moves the item to the end of the active list.
	RestoreAppend RestorePolicy = "append"
)

// BlobStore persists uploaded objects.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PageIndex is the full-text index of pages.
type PageIndex interface {
	IndexPage(ctx context.Context, page *domain.Page, blocks []*domain.Block) error
	RemovePage(ctx context.Context, pageID string) error
	SearchPages(ctx context.Context, userID, query string, limit int) ([]string, error)
}

type Service struct {
	repo      domain.Repository
	locker    ordering.Locker
	blobs     BlobStore
	index     PageIndex
	logger    *zap.Logger
	tracer    trace.Tracer
	restore   RestorePolicy
	lockWait  time.Duration
	maxUpload int64
	now       func() time.Time
}

type Option func(*Service)

func WithBlobStore(b BlobStore) Option { return func(s *Service) { s.blobs = b } }

func WithPageIndex(idx PageIndex) Option { return func(s *Service) { s.index = idx } }

func WithRestorePolicy(p RestorePolicy) Option { return func(s *Service) { s.restore = p } }

func WithLockWait(d time.Duration) Option { return func(s *Service) { s.lockWait = d } }

func WithMaxUploadBytes(n int64) Option { return func(s *Service) { s.maxUpload = n } }

func NewService(repo domain.Repository, locker ordering.Locker, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		locker:    locker,
		logger:    logger,
		tracer:    otel.Tracer("notely-service"),
		restore:   RestoreKeep,
		lockWait:  defaultLockWait,
		maxUpload: domain.DefaultMaxFileSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// parent names one ordered list: a collection under one parent id.
type parent struct {
	c  ordering.Collection
	id string
}

// serialized runs fn in one transaction while holding the keyed lock and the
// datastore row lock of every parent, in the order given. Callers list the
// user's page list before a page's block list.
func (s *Service) serialized(ctx context.Context, parents []parent, fn func(ctx context.Context, tx domain.Repository) error) error {
	for _, p := range parents {
		unlock, err := s.lock(ctx, p)
		if err != nil {
			return err
		}
		defer unlock()
	}

	return s.repo.RunInTx(ctx, func(ctx context.Context, tx domain.Repository) error {
		for _, p := range parents {
			if err := tx.Slots(p.c).LockParent(ctx, p.id); err != nil {
				return err
			}
		}
		return fn(ctx, tx)
	})
}

func (s *Service) lock(ctx context.Context, p parent) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	start := time.Now()
	unlock, err := s.locker.Lock(lockCtx, ordering.Key(p.c, p.id))
	lockWaitSeconds.WithLabelValues(string(p.c)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("failed to acquire ordering lock",
			zap.String("collection", string(p.c)),
			zap.String("parent_id", p.id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("acquire %s lock: %w", p.c, err)
	}
	return unlock, nil
}

// ownedPage resolves a page and checks the caller owns it.
func ownedPage(ctx context.Context, repo domain.Repository, userID, pageID string) (*domain.Page, error) {
	page, err := repo.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if err := page.OwnedBy(userID); err != nil {
		return nil, err
	}
	return page, nil
}

// ownedBlock resolves a block and checks the caller owns its page.
func ownedBlock(ctx context.Context, repo domain.Repository, userID, blockID string) (*domain.Block, *domain.Page, error) {
	block, err := repo.GetBlock(ctx, blockID)
	if err != nil {
		return nil, nil, err
	}
	page, err := repo.GetPage(ctx, block.PageID)
	if err != nil {
		return nil, nil, err
	}
	if err := page.OwnedBy(userID); err != nil {
		return nil, nil, err
	}
	return block, page, nil
}

func ownedTag(ctx context.Context, repo domain.Repository, userID, tagID string) (*domain.Tag, error) {
	tag, err := repo.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if err := tag.OwnedBy(userID); err != nil {
		return nil, err
	}
	return tag, nil
}

// restoreTarget returns the position a restored item moves to, or -1 to
// keep it in place.
func (s *Service) restoreTarget(ctx context.Context, slots ordering.Slots, parentID string) (int, error) {
	if s.restore != RestoreAppend {
		return -1, nil
	}
	return ordering.Count(ctx, slots, parentID)
}

func (s *Service) logFailure(msg string, err error, fields ...zap.Field) {
	switch domain.Kind(err) {
	case domain.KindInternal:
		s.logger.Error(msg, append(fields, zap.Error(err))...)
	default:
		s.logger.Debug(msg, append(fields, zap.Error(err))...)
	}
}

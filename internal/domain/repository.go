package domain

import (
	"context"
	"time"

	"github.com/dmehra2102/notely/internal/ordering"
)

// Repository defines the contract for notely persistence.
//
// Lookups by id return the row whether or not it is trashed; callers decide
// what a trashed row means for them.
type Repository interface {
	// RunInTx runs fn with a Repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	// Slots returns the ordering gateway for a collection.
	Slots(c ordering.Collection) ordering.Slots

	UserRepository
	PageRepository
	BlockRepository
	TagRepository
	MediaRepository
}

type UserRepository interface {
	// EnsureUser inserts the user unless a row with the same id exists.
	EnsureUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

type PageRepository interface {
	CreatePage(ctx context.Context, page *Page) error
	GetPage(ctx context.Context, id string) (*Page, error)
	UpdatePage(ctx context.Context, page *Page) error

	// ListPages returns active pages matching the filter with their tags.
	ListPages(ctx context.Context, filter *PageFilter) ([]*Page, error)

	// ListTrashedPages returns the user's trashed pages, newest first.
	ListTrashedPages(ctx context.Context, userID string) ([]*Page, error)

	// SetPageDeleted trashes (deletedAt != nil) or restores the page row.
	SetPageDeleted(ctx context.Context, id string, deletedAt *time.Time) error

	// PurgePage hard deletes the page, its blocks and tag links.
	PurgePage(ctx context.Context, id string) error

	// SearchPages matches active pages by title or block content.
	SearchPages(ctx context.Context, userID, query string, limit int) ([]*Page, error)
}

type BlockRepository interface {
	CreateBlock(ctx context.Context, block *Block) error
	GetBlock(ctx context.Context, id string) (*Block, error)
	UpdateBlock(ctx context.Context, block *Block) error

	// ListBlocks returns active blocks ascending by position. A non-empty
	// search matches the serialized content case-insensitively.
	ListBlocks(ctx context.Context, pageID, search string) ([]*Block, error)
	ListTrashedBlocks(ctx context.Context, pageID string) ([]*Block, error)

	SetBlockDeleted(ctx context.Context, id string, deletedAt *time.Time) error

	// SetPageBlocksDeleted trashes every active block of the page when
	// deletedAt is set, and restores every trashed block when it is nil.
	SetPageBlocksDeleted(ctx context.Context, pageID string, deletedAt *time.Time) (int64, error)

	PurgeBlock(ctx context.Context, id string) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *Tag) error
	GetTag(ctx context.Context, id string) (*Tag, error)
	ListTags(ctx context.Context, userID string) ([]*Tag, error)
	DeleteTag(ctx context.Context, id string) error

	AttachTag(ctx context.Context, pageID, tagID string) error
	// DetachTag returns ErrTagNotOnPage when there was no link.
	DetachTag(ctx context.Context, pageID, tagID string) error
	ListPageTags(ctx context.Context, pageID string) ([]*Tag, error)
}

type MediaRepository interface {
	CreateMedia(ctx context.Context, media *Media) error
	GetMedia(ctx context.Context, id string) (*Media, error)
	ListMedia(ctx context.Context, userID string) ([]*Media, error)
	DeleteMedia(ctx context.Context, id string) error
}

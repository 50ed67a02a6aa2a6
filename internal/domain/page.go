package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultPageTitle = "Untitled"
	maxTitleLength   = 255
)

type Page struct {
	ID        string
	UserID    string
	Title     string
	Position  int
	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Blocks []*Block
	Tags   []*Tag
}

// NewPage creates an active page. An empty title becomes DefaultPageTitle.
func NewPage(userID, title string) (*Page, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultPageTitle
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Page{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Page) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	p.Title = title
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Trash moves an active page to the trash. Position is kept.
func (p *Page) Trash(at time.Time) error {
	if p.IsDeleted {
		return ErrTrashed
	}
	p.IsDeleted = true
	p.DeletedAt = &at
	return nil
}

func (p *Page) Restore() error {
	if !p.IsDeleted {
		return ErrNotTrashed
	}
	p.IsDeleted = false
	p.DeletedAt = nil
	return nil
}

// CanPurge reports whether the page may be hard deleted.
func (p *Page) CanPurge() error {
	if !p.IsDeleted {
		return ErrNotTrashed
	}
	return nil
}

func (p *Page) OwnedBy(userID string) error {
	if p.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

type PageSort string

const (
	SortUpdatedAt PageSort = "updatedAt"
	SortCreatedAt PageSort = "createdAt"
	SortTitle     PageSort = "title"
	SortPosition  PageSort = "position"
)

type PageFilter struct {
	UserID    string
	Search    string
	TagIDs    []string
	SortBy    PageSort
	SortOrder string
}

// Validate fills defaults and rejects unknown sort options.
func (f *PageFilter) Validate() error {
	if f.UserID == "" {
		return ErrInvalidUserID
	}

	switch f.SortBy {
	case "":
		f.SortBy = SortUpdatedAt
	case SortUpdatedAt, SortCreatedAt, SortTitle, SortPosition:
	default:
		return ErrInvalidSort
	}

	switch strings.ToLower(f.SortOrder) {
	case "":
		f.SortOrder = "desc"
	case "asc", "desc":
		f.SortOrder = strings.ToLower(f.SortOrder)
	default:
		return ErrInvalidSort
	}

	f.Search = strings.TrimSpace(f.Search)
	return nil
}

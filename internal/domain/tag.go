package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxTagNameLength = 50

type Tag struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time

	PageCount int
}

func NewTag(userID, name string) (*Tag, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	name = NormalizeTagName(name)
	if name == "" {
		return nil, ErrEmptyTagName
	}
	if utf8.RuneCountInString(name) > maxTagNameLength {
		return nil, ErrTagNameTooLong
	}

	return &Tag{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t *Tag) OwnedBy(userID string) error {
	if t.UserID != userID {
		return ErrForbidden
	}
	return nil
}

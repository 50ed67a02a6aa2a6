package domain

import (
	"errors"

	"github.com/dmehra2102/notely/internal/ordering"
)

var (
	// Validation Errors
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrTitleTooLong        = errors.New("title exceeds 255 characters")
	ErrInvalidUserID       = errors.New("user ID is required")
	ErrInvalidPageID       = errors.New("page ID is required")
	ErrInvalidBlockType    = errors.New("invalid block type")
	ErrEmptyContent        = errors.New("block content must be a non-empty JSON object")
	ErrEmptyTagName        = errors.New("tag name cannot be empty")
	ErrTagNameTooLong      = errors.New("tag name exceeds 50 characters")
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrInvalidAvatar       = errors.New("avatar must be an absolute http(s) URL")
	ErrInvalidSort         = errors.New("invalid sort option")
	ErrEmptyOrder          = ordering.ErrEmptyOrder
	ErrPositionOutOfRange  = ordering.ErrPositionOutOfRange
	ErrNegativePosition    = ordering.ErrNegativePosition
	ErrNoFiles             = errors.New("no file uploaded")
	ErrTooManyFiles        = errors.New("too many files")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrUnsupportedFileType = errors.New("file type is not allowed")
	ErrEmptyQuery          = errors.New("search query cannot be empty")

	// State errors
	ErrNotTrashed = errors.New("item is not in trash")
	ErrTrashed    = errors.New("item is already in trash")

	// Lookup errors
	ErrUserNotFound  = errors.New("user not found")
	ErrPageNotFound  = errors.New("page not found")
	ErrBlockNotFound = errors.New("block not found")
	ErrTagNotFound   = errors.New("tag not found")
	ErrTagNotOnPage  = errors.New("tag is not attached to page")
	ErrMediaNotFound = errors.New("media not found")

	// Conflict errors
	ErrConflict         = errors.New("resource already exists")
	ErrTagExists        = errors.New("tag already exists")
	ErrTagAlreadyOnPage = errors.New("tag already attached to page")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("access denied")
)

// ErrorKind groups errors by how callers should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindValidation
	KindConflict
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "INTERNAL"
	}
}

var kinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindNotFound, []error{ErrUserNotFound, ErrPageNotFound, ErrBlockNotFound, ErrTagNotFound, ErrTagNotOnPage, ErrMediaNotFound}},
	{KindForbidden, []error{ErrForbidden}},
	{KindUnauthenticated, []error{ErrUnauthorized}},
	{KindInvalidState, []error{ErrNotTrashed, ErrTrashed}},
	{KindConflict, []error{ErrConflict, ErrTagExists, ErrTagAlreadyOnPage}},
	{KindValidation, []error{
		ErrEmptyTitle, ErrTitleTooLong, ErrInvalidUserID, ErrInvalidPageID, ErrInvalidBlockType,
		ErrEmptyContent, ErrEmptyTagName, ErrTagNameTooLong, ErrEmptyName, ErrInvalidAvatar,
		ErrInvalidSort, ErrEmptyOrder, ErrPositionOutOfRange, ErrNegativePosition, ErrNoFiles,
		ErrTooManyFiles, ErrFileTooLarge, ErrUnsupportedFileType, ErrEmptyQuery,
	}},
}

// Kind classifies err. Unknown errors are KindInternal.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}

package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMediaFolder = "general"
	MaxFilesPerUpload  = 10
	DefaultMaxFileSize = 10 << 20
	mediaKeyPrefix     = "notely"
)

var allowedMediaTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"image/svg+xml":      true,
	"video/mp4":          true,
	"video/webm":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
}

func IsAllowedMediaType(contentType string) bool {
	return allowedMediaTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

type Media struct {
	ID           string
	UserID       string
	Key          string
	URL          string
	ContentType  string
	Size         int64
	Folder       string
	OriginalName string
	CreatedAt    time.Time
}

// NewMedia builds an upload record and its object key
// notely/<folder>/<uuid><ext>.
func NewMedia(userID, folder, originalName, contentType string, size, maxSize int64) (*Media, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if size > maxSize {
		return nil, ErrFileTooLarge
	}
	if !IsAllowedMediaType(contentType) {
		return nil, ErrUnsupportedFileType
	}

	folder = cleanFolder(folder)
	id := uuid.New().String()
	ext := strings.ToLower(path.Ext(originalName))

	return &Media{
		ID:           id,
		UserID:       userID,
		Key:          path.Join(mediaKeyPrefix, folder, id+ext),
		ContentType:  contentType,
		Size:         size,
		Folder:       folder,
		OriginalName: originalName,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (m *Media) OwnedBy(userID string) error {
	if m.UserID != userID {
		return ErrForbidden
	}
	return nil
}

// cleanFolder keeps folder names inside the notely prefix.
func cleanFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+strings.TrimSpace(folder)), "/")
	if folder == "" || folder == "." {
		return DefaultMediaFolder
	}
	return folder
}

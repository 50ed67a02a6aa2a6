package httpapi

import (
	"encoding/json"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/pkg/auth"
)

type createPageRequest struct {
	Title string `json:"title"`
}

type updatePageRequest struct {
	Title *string `json:"title"`
}

type reorderPagesRequest struct {
	PageIDs []string `json:"pageIds"`
}

type createBlockRequest struct {
	PageID   string           `json:"pageId"`
	Type     domain.BlockType `json:"type"`
	Content  json.RawMessage  `json:"content"`
	Position *int             `json:"position"`
}

type updateBlockRequest struct {
	Type    *domain.BlockType `json:"type"`
	Content json.RawMessage   `json:"content"`
}

type reorderBlocksRequest struct {
	BlockIDs []string `json:"blockIds"`
}

type createTagRequest struct {
	Name string `json:"name"`
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type pageResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Title     string          `json:"title"`
	Position  int             `json:"position"`
	IsDeleted bool            `json:"isDeleted"`
	DeletedAt *time.Time      `json:"deletedAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Blocks    []blockResponse `json:"blocks,omitempty"`
	Tags      []tagResponse   `json:"tags"`
}

type blockResponse struct {
	ID        string           `json:"id"`
	PageID    string           `json:"pageId"`
	Type      domain.BlockType `json:"type"`
	Content   json.RawMessage  `json:"content"`
	Position  int              `json:"position"`
	IsDeleted bool             `json:"isDeleted"`
	DeletedAt *time.Time       `json:"deletedAt"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type tagResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	PageCount *int      `json:"pageCount,omitempty"`
}

type mediaResponse struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	Folder       string    `json:"folder"`
	OriginalName string    `json:"originalName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type meResponse struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	UserMetadata map[string]any  `json:"user_metadata"`
	Profile      profileResponse `json:"profile"`
}

func toPage(p *domain.Page) pageResponse {
	out := pageResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Position:  p.Position,
		IsDeleted: p.IsDeleted,
		DeletedAt: p.DeletedAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Tags:      toTags(p.Tags, false),
	}
	if p.Blocks != nil {
		out.Blocks = toBlocks(p.Blocks)
	}
	return out
}

func toPages(pages []*domain.Page) []pageResponse {
	out := make([]pageResponse, len(pages))
	for i, p := range pages {
		out[i] = toPage(p)
	}
	return out
}

func toBlock(b *domain.Block) blockResponse {
	return blockResponse{
		ID:        b.ID,
		PageID:    b.PageID,
		Type:      b.Type,
		Content:   b.Content,
		Position:  b.Position,
		IsDeleted: b.IsDeleted,
		DeletedAt: b.DeletedAt,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toBlocks(blocks []*domain.Block) []blockResponse {
	out := make([]blockResponse, len(blocks))
	for i, b := range blocks {
		out[i] = toBlock(b)
	}
	return out
}

func toTag(t *domain.Tag, withCount bool) tagResponse {
	out := tagResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	if withCount {
		n := t.PageCount
		out.PageCount = &n
	}
	return out
}

func toTags(tags []*domain.Tag, withCount bool) []tagResponse {
	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTag(t, withCount)
	}
	return out
}

func toMedia(m *domain.Media) mediaResponse {
	return mediaResponse{
		ID:           m.ID,
		Key:          m.Key,
		URL:          m.URL,
		ContentType:  m.ContentType,
		Size:         m.Size,
		Folder:       m.Folder,
		OriginalName: m.OriginalName,
		CreatedAt:    m.CreatedAt,
	}
}

func toMediaList(media []*domain.Media) []mediaResponse {
	out := make([]mediaResponse, len(media))
	for i, m := range media {
		out[i] = toMedia(m)
	}
	return out
}

func toProfile(u *domain.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toMe(id *auth.Identity, u *domain.User) meResponse {
	meta := id.UserMetadata
	if meta == nil {
		meta = map[string]any{}
	}
	return meResponse{ID: id.UserID, Email: id.Email, UserMetadata: meta, Profile: toProfile(u)}
}

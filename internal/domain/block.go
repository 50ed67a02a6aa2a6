package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockText      BlockType = "TEXT"
	BlockHeading   BlockType = "HEADING"
	BlockChecklist BlockType = "CHECKLIST"
	BlockImage     BlockType = "IMAGE"
	BlockFile      BlockType = "FILE"
)

func (t BlockType) IsValid() bool {
	switch t {
	case BlockText, BlockHeading, BlockChecklist, BlockImage, BlockFile:
		return true
	}
	return false
}

type Block struct {
	ID        string
	PageID    string
	Type      BlockType
	Content   json.RawMessage
	Position  int
	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBlock validates and builds a block. Position is assigned on insert.
func NewBlock(pageID string, typ BlockType, content json.RawMessage) (*Block, error) {
	if pageID == "" {
		return nil, ErrInvalidPageID
	}
	if !typ.IsValid() {
		return nil, ErrInvalidBlockType
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Block{
		ID:        uuid.New().String(),
		PageID:    pageID,
		Type:      typ,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply updates the type and/or content. Nil arguments are left unchanged.
func (b *Block) Apply(typ *BlockType, content json.RawMessage) error {
	if typ != nil {
		if !typ.IsValid() {
			return ErrInvalidBlockType
		}
		b.Type = *typ
	}
	if content != nil {
		c, err := normalizeContent(content)
		if err != nil {
			return err
		}
		b.Content = c
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (b *Block) Trash(at time.Time) error {
	if b.IsDeleted {
		return ErrTrashed
	}
	b.IsDeleted = true
	b.DeletedAt = &at
	return nil
}

func (b *Block) Restore() error {
	if !b.IsDeleted {
		return ErrNotTrashed
	}
	b.IsDeleted = false
	b.DeletedAt = nil
	return nil
}

func (b *Block) CanPurge() error {
	if !b.IsDeleted {
		return ErrNotTrashed
	}
	return nil
}

// normalizeContent requires a JSON object with at least one key and returns
// it compacted.
func normalizeContent(content json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil || len(obj) == 0 {
		return nil, ErrEmptyContent
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, content); err != nil {
		return nil, ErrEmptyContent
	}
	return buf.Bytes(), nil
}

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractText(t *testing.T) {
	raw := json.RawMessage(`{"text":"Buy milk","items":[{"label":"eggs","done":true},{"label":" "}],"level":2}`)
	assert.Equal(t, "eggs Buy milk", ExtractText(raw))
	assert.Equal(t, "", ExtractText(json.RawMessage(`not json`)))
}

func TestNewPageRecordSkipsTrashedBlocks(t *testing.T) {
	p := &domain.Page{ID: "p1", UserID: "u1", Title: "Groceries", UpdatedAt: time.Unix(100, 0)}
	blocks := []*domain.Block{
		{Content: json.RawMessage(`{"text":"milk"}`)},
		{Content: json.RawMessage(`{"text":"gone"}`), IsDeleted: true},
		{Content: json.RawMessage(`{"text":"bread"}`)},
	}

	rec := NewPageRecord(p, blocks)
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "milk\nbread", rec.Body)
	assert.Equal(t, int64(100), rec.UpdatedAt)
}

func TestMeiliUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMeili(srv.URL, "", zap.NewNop())
	defer m.Close()

	assert.False(t, m.Healthy())

	_, err := m.SearchPages(context.Background(), "u1", "x", 10)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, m.IndexPage(context.Background(), &domain.Page{ID: "p"}, nil), ErrUnavailable)
	assert.ErrorIs(t, m.RemovePage(context.Background(), "p"), ErrUnavailable)
}

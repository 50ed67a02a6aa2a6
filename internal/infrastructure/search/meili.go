// Package search keeps a Meilisearch index of pages for full-text lookup.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxPages = "notely_pages"

var ErrUnavailable = errors.New("search index unavailable")

// PageRecord is the indexed form of a page.
type PageRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewPageRecord flattens a page and its active blocks into one record.
func NewPageRecord(p *domain.Page, blocks []*domain.Block) PageRecord {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.IsDeleted {
			continue
		}
		if text := ExtractText(b.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return PageRecord{
		ID:        p.ID,
		UserID:    p.UserID,
		Title:     p.Title,
		Body:      strings.Join(parts, "\n"),
		UpdatedAt: p.UpdatedAt.Unix(),
	}
}

// ExtractText collects every string value in a JSON document, visiting
// object keys in sorted order.
func ExtractText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	var out []string
	collect(v, &out)
	return strings.Join(out, " ")
}

func collect(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case []any:
		for _, e := range t {
			collect(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collect(t[k], out)
		}
	}
}

// Meili indexes pages in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates the client and configures the index. A failed initial
// health check leaves the index marked unhealthy; the health loop retries.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxPages,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxPages), zap.Error(err))
	}

	index := m.client.Index(idxPages)
	filterable := []interface{}{"userId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"title", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) IndexPage(_ context.Context, p *domain.Page, blocks []*domain.Block) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	_, err := m.client.Index(idxPages).AddDocuments([]PageRecord{NewPageRecord(p, blocks)}, nil)
	return err
}

func (m *Meili) RemovePage(_ context.Context, pageID string) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	_, err := m.client.Index(idxPages).DeleteDocument(pageID, nil)
	return err
}

// SearchPages returns the ids of the user's matching pages, best first.
func (m *Meili) SearchPages(_ context.Context, userID, query string, limit int) ([]string, error) {
	if !m.healthy.Load() {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxPages,
			Query:    query,
			Limit:    int64(limit),
			Filter:   fmt.Sprintf("userId = %q", userID),
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var ids []string
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if id := decodeString(hit, "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

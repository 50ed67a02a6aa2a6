package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/internal/infrastructure/config"
	"github.com/dmehra2102/notely/internal/infrastructure/sqlstore"
	"github.com/dmehra2102/notely/internal/ordering"
	"github.com/dmehra2102/notely/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	alice = "11111111-1111-1111-1111-111111111111"
	bob   = "22222222-2222-2222-2222-222222222222"
)

type fixture struct {
	svc   *Service
	store *sqlstore.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, ordering.NewKeyedMutex(), opts...)
}

func newFixtureWithLocker(t *testing.T, locker ordering.Locker, opts ...Option) *fixture {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "notely.db")
	require.NoError(t, sqlstore.Migrate(sqlstore.SQLite, dsn))

	db, dialect, err := sqlstore.Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", URL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := sqlstore.New(db, dialect, 0)
	svc := NewService(store, locker, zap.NewNop(), opts...)

	for _, id := range []string{alice, bob} {
		_, err := svc.SyncUser(context.Background(), &auth.Identity{UserID: id, Email: id[:4] + "@example.com"})
		require.NoError(t, err)
	}
	return &fixture{svc: svc, store: store}
}

func (f *fixture) page(t *testing.T, userID, title string) *domain.Page {
	t.Helper()
	p, err := f.svc.CreatePage(context.Background(), userID, title)
	require.NoError(t, err)
	return p
}

func (f *fixture) block(t *testing.T, userID, pageID, text string, at *int) *domain.Block {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	b, err := f.svc.CreateBlock(context.Background(), userID, CreateBlockInput{
		PageID:   pageID,
		Type:     domain.BlockText,
		Content:  raw,
		Position: at,
	})
	require.NoError(t, err)
	return b
}

// blockOrder returns "text@position" for the page's active blocks.
func (f *fixture) blockOrder(t *testing.T, pageID string) []string {
	t.Helper()
	blocks, err := f.store.ListBlocks(context.Background(), pageID, "")
	require.NoError(t, err)

	out := make([]string, len(blocks))
	for i, b := range blocks {
		var c map[string]string
		require.NoError(t, json.Unmarshal(b.Content, &c))
		out[i] = fmt.Sprintf("%s@%d", c["text"], b.Position)
	}
	return out
}

func (f *fixture) pagePositions(t *testing.T, userID string) []int {
	t.Helper()
	items, err := f.store.Slots(ordering.Pages).Active(context.Background(), userID, -1)
	require.NoError(t, err)
	return ordering.Positions(items)
}

func intp(n int) *int { return &n }

// spyLocker records every key it hands out and can run a hook once, right
// after the next release.
type spyLocker struct {
	inner ordering.Locker

	mu    sync.Mutex
	keys  []string
	after func()
}

func newSpyLocker() *spyLocker {
	return &spyLocker{inner: ordering.NewKeyedMutex()}
}

func (l *spyLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	return func() {
		unlock()

		l.mu.Lock()
		hook := l.after
		l.after = nil
		l.mu.Unlock()
		if hook != nil {
			hook()
		}
	}, nil
}

func (l *spyLocker) afterNextUnlock(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.after = fn
}

func (l *spyLocker) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, k := range l.keys {
		if k == key {
			n++
		}
	}
	return n
}

func TestCreatePageAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.page(t, alice, "a")
	b := f.page(t, alice, "")
	c := f.page(t, bob, "bob's")

	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)
	assert.Equal(t, "Untitled", b.Title)
	assert.Equal(t, 0, c.Position)

	pages, err := f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice, SortBy: domain.SortPosition, SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, a.ID, pages[0].ID)
}

func TestCreateBlockPositions(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, alice, "p")

	f.block(t, alice, p.ID, "a", nil)
	f.block(t, alice, p.ID, "b", nil)
	f.block(t, alice, p.ID, "c", nil)
	assert.Equal(t, []string{"a@0", "b@1", "c@2"}, f.blockOrder(t, p.ID))

	d := f.block(t, alice, p.ID, "d", intp(1))
	assert.Equal(t, 1, d.Position)
	assert.Equal(t, []string{"a@0", "d@1", "b@2", "c@3"}, f.blockOrder(t, p.ID))

	f.block(t, alice, p.ID, "e", intp(4))
	assert.Equal(t, []string{"a@0", "d@1", "b@2", "c@3", "e@4"}, f.blockOrder(t, p.ID))

	_, err := f.svc.CreateBlock(context.Background(), alice, CreateBlockInput{
		PageID: p.ID, Type: domain.BlockText, Content: json.RawMessage(`{"text":"x"}`), Position: intp(9),
	})
	assert.ErrorIs(t, err, domain.ErrPositionOutOfRange)
	assert.Equal(t, domain.KindValidation, domain.Kind(err))

	_, err = f.svc.CreateBlock(context.Background(), alice, CreateBlockInput{
		PageID: p.ID, Type: domain.BlockText, Content: json.RawMessage(`{"text":"x"}`), Position: intp(-1),
	})
	assert.ErrorIs(t, err, domain.ErrNegativePosition)

	_, err = f.svc.CreateBlock(context.Background(), alice, CreateBlockInput{
		PageID: p.ID, Type: "VIDEO", Content: json.RawMessage(`{"text":"x"}`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBlockType)
}

func TestDeleteBlockKeepsPositionsDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")

	f.block(t, alice, p.ID, "a", nil)
	b := f.block(t, alice, p.ID, "b", nil)
	f.block(t, alice, p.ID, "c", nil)
	f.block(t, alice, p.ID, "d", nil)

	require.NoError(t, f.svc.DeleteBlock(ctx, alice, b.ID))
	assert.Equal(t, []string{"a@0", "c@1", "d@2"}, f.blockOrder(t, p.ID))

	trashed, err := f.svc.GetBlock(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsDeleted)
	assert.Equal(t, 1, trashed.Position)

	err = f.svc.DeleteBlock(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrTrashed)
	assert.Equal(t, domain.KindInvalidState, domain.Kind(err))

	last := f.block(t, alice, p.ID, "e", nil)
	assert.Equal(t, 3, last.Position)
}

func TestRestoreBlockKeepPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")

	a := f.block(t, alice, p.ID, "a", nil)
	b := f.block(t, alice, p.ID, "b", nil)
	c := f.block(t, alice, p.ID, "c", nil)

	require.NoError(t, f.svc.DeleteBlock(ctx, alice, b.ID))
	require.NoError(t, f.svc.RestoreBlock(ctx, alice, b.ID))

	// the restored block keeps its stale slot until the next reorder
	assert.Equal(t, []string{"a@0", "b@1", "c@1"}, f.blockOrder(t, p.ID))

	err := f.svc.RestoreBlock(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotTrashed)

	blocks, err := f.svc.ReorderBlocks(ctx, alice, p.ID, []string{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []string{"a@0", "b@1", "c@2"}, f.blockOrder(t, p.ID))
}

func TestRestoreBlockAppendPolicy(t *testing.T) {
	f := newFixture(t, WithRestorePolicy(RestoreAppend))
	ctx := context.Background()
	p := f.page(t, alice, "p")

	a := f.block(t, alice, p.ID, "a", nil)
	f.block(t, alice, p.ID, "b", nil)
	f.block(t, alice, p.ID, "c", nil)

	require.NoError(t, f.svc.DeleteBlock(ctx, alice, a.ID))
	require.NoError(t, f.svc.RestoreBlock(ctx, alice, a.ID))
	assert.Equal(t, []string{"b@0", "c@1", "a@2"}, f.blockOrder(t, p.ID))
}

func TestPurgeBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")

	f.block(t, alice, p.ID, "a", nil)
	b := f.block(t, alice, p.ID, "b", nil)
	f.block(t, alice, p.ID, "c", nil)

	err := f.svc.PurgeBlock(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotTrashed)

	require.NoError(t, f.svc.DeleteBlock(ctx, alice, b.ID))
	require.NoError(t, f.svc.PurgeBlock(ctx, alice, b.ID))
	assert.Equal(t, []string{"a@0", "c@1"}, f.blockOrder(t, p.ID))

	_, err = f.svc.GetBlock(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestReorderBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")
	other := f.page(t, alice, "other")

	a := f.block(t, alice, p.ID, "a", nil)
	b := f.block(t, alice, p.ID, "b", nil)
	c := f.block(t, alice, p.ID, "c", nil)
	foreign := f.block(t, alice, other.ID, "x", nil)

	order := []string{c.ID, a.ID, b.ID}
	_, err := f.svc.ReorderBlocks(ctx, alice, p.ID, order)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@0", "a@1", "b@2"}, f.blockOrder(t, p.ID))

	_, err = f.svc.ReorderBlocks(ctx, alice, p.ID, order)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@0", "a@1", "b@2"}, f.blockOrder(t, p.ID))

	t.Run("foreign and unknown ids are skipped", func(t *testing.T) {
		_, err := f.svc.ReorderBlocks(ctx, alice, p.ID, []string{a.ID, foreign.ID, "missing", b.ID, c.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"a@0", "b@3", "c@4"}, f.blockOrder(t, p.ID))
		assert.Equal(t, []string{"x@0"}, f.blockOrder(t, other.ID))
	})

	t.Run("empty order", func(t *testing.T) {
		_, err := f.svc.ReorderBlocks(ctx, alice, p.ID, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	})

	t.Run("other user's page", func(t *testing.T) {
		_, err := f.svc.ReorderBlocks(ctx, bob, p.ID, []string{a.ID})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestBlockOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")
	b := f.block(t, alice, p.ID, "a", nil)

	_, err := f.svc.GetBlock(ctx, bob, b.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.DeleteBlock(ctx, bob, b.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ListBlocks(ctx, bob, p.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.CreateBlock(ctx, bob, CreateBlockInput{PageID: p.ID, Type: domain.BlockText, Content: json.RawMessage(`{"a":1}`)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.DeleteBlock(ctx, alice, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
	assert.Equal(t, domain.KindNotFound, domain.Kind(err))

	assert.Equal(t, []string{"a@0"}, f.blockOrder(t, p.ID))

	t.Run("trashed block", func(t *testing.T) {
		f.block(t, alice, p.ID, "b", nil)
		require.NoError(t, f.svc.DeleteBlock(ctx, alice, b.ID))

		err := f.svc.RestoreBlock(ctx, bob, b.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		err = f.svc.PurgeBlock(ctx, bob, b.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, domain.KindForbidden, domain.Kind(err))

		stored, err := f.svc.GetBlock(ctx, alice, b.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsDeleted)
		assert.Equal(t, 0, stored.Position)
		assert.Equal(t, []string{"b@0"}, f.blockOrder(t, p.ID))
	})
}

func TestUpdateBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")
	b := f.block(t, alice, p.ID, "a", nil)

	heading := domain.BlockHeading
	got, err := f.svc.UpdateBlock(ctx, alice, b.ID, UpdateBlockInput{Type: &heading, Content: json.RawMessage(`{"text":"Title","level":1}`)})
	require.NoError(t, err)
	assert.Equal(t, domain.BlockHeading, got.Type)
	assert.Equal(t, 0, got.Position)

	stored, err := f.svc.GetBlock(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Title","level":1}`, string(stored.Content))

	_, err = f.svc.UpdateBlock(ctx, alice, b.ID, UpdateBlockInput{Content: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestListBlocksSearch(t *testing.T) {
	f := newFixture(t)
	p := f.page(t, alice, "p")
	f.block(t, alice, p.ID, "Buy Milk", nil)
	f.block(t, alice, p.ID, "call mom", nil)

	blocks, err := f.svc.ListBlocks(context.Background(), alice, p.ID, "MILK")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	_, err = f.svc.ListBlocks(context.Background(), alice, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPageID)
}

// The sqlite fixture runs on a single connection, which already serializes
// transactions, so this only shows the end state. TestBlockMutationsTakeParentLock
// checks that every delete goes through the page's lock.
func TestConcurrentBlockDeletesStayDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")

	var blocks []*domain.Block
	for i := 0; i < 10; i++ {
		blocks = append(blocks, f.block(t, alice, p.ID, fmt.Sprint(i), nil))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for _, i := range []int{2, 4, 6, 8} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- f.svc.DeleteBlock(ctx, alice, id)
		}(blocks[i].ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"0@0", "1@1", "3@2", "5@3", "7@4", "9@5"}, f.blockOrder(t, p.ID))
}

func TestBlockMutationsTakeParentLock(t *testing.T) {
	locker := newSpyLocker()
	f := newFixtureWithLocker(t, locker)
	ctx := context.Background()
	p := f.page(t, alice, "p")
	key := ordering.Key(ordering.Blocks, p.ID)

	var blocks []*domain.Block
	for i := 0; i < 6; i++ {
		blocks = append(blocks, f.block(t, alice, p.ID, fmt.Sprint(i), nil))
	}
	require.Equal(t, 6, locker.count(key))

	var wg sync.WaitGroup
	for _, i := range []int{1, 3, 5} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, f.svc.DeleteBlock(ctx, alice, id))
		}(blocks[i].ID)
	}
	wg.Wait()

	assert.Equal(t, 9, locker.count(key))
	assert.Equal(t, []string{"0@0", "2@1", "4@2"}, f.blockOrder(t, p.ID))
}

func TestReorderReturnsItsOwnResult(t *testing.T) {
	locker := newSpyLocker()
	f := newFixtureWithLocker(t, locker)
	ctx := context.Background()

	t.Run("blocks", func(t *testing.T) {
		p := f.page(t, alice, "p")
		a := f.block(t, alice, p.ID, "a", nil)
		b := f.block(t, alice, p.ID, "b", nil)

		// a write landing right after the reorder releases its lock
		locker.afterNextUnlock(func() { f.block(t, alice, p.ID, "late", intp(0)) })

		got, err := f.svc.ReorderBlocks(ctx, alice, p.ID, []string{b.ID, a.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, b.ID, got[0].ID)
		assert.Equal(t, 0, got[0].Position)
		assert.Equal(t, a.ID, got[1].ID)
		assert.Equal(t, 1, got[1].Position)

		assert.Equal(t, []string{"late@0", "b@1", "a@2"}, f.blockOrder(t, p.ID))
	})

	t.Run("pages", func(t *testing.T) {
		a := f.page(t, bob, "a")
		b := f.page(t, bob, "b")

		locker.afterNextUnlock(func() { f.page(t, bob, "late") })

		got, err := f.svc.ReorderPages(ctx, bob, []string{b.ID, a.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, b.ID, got[0].ID)
		assert.Equal(t, a.ID, got[1].ID)

		assert.Equal(t, []int{0, 1, 2}, f.pagePositions(t, bob))
	})
}

func TestConcurrentCreatesStayDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreatePage(ctx, alice, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, f.pagePositions(t, alice))
}

func TestDeletePageCascadesAndRepairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.page(t, alice, "a")
	b := f.page(t, alice, "b")
	c := f.page(t, alice, "c")
	f.block(t, alice, b.ID, "x", nil)
	f.block(t, alice, b.ID, "y", nil)

	require.NoError(t, f.svc.DeletePage(ctx, alice, b.ID))
	assert.Equal(t, []int{0, 1}, f.pagePositions(t, alice))

	got, err := f.svc.GetPage(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Position)

	trash, err := f.svc.ListTrash(ctx, alice)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, b.ID, trash[0].ID)
	assert.Len(t, trash[0].Blocks, 2)

	err = f.svc.DeletePage(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrTrashed)

	pages, err := f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	for _, p := range pages {
		assert.NotEqual(t, b.ID, p.ID)
	}

	got, err = f.svc.GetPage(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Position)
}

func TestRestorePage(t *testing.T) {
	t.Run("keep", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.page(t, alice, "a")
		b := f.page(t, alice, "b")
		f.page(t, alice, "c")
		f.block(t, alice, b.ID, "x", nil)

		require.NoError(t, f.svc.DeletePage(ctx, alice, b.ID))
		require.NoError(t, f.svc.RestorePage(ctx, alice, b.ID))

		assert.Equal(t, []int{0, 1, 1}, f.pagePositions(t, alice))
		assert.Equal(t, []string{"x@0"}, f.blockOrder(t, b.ID))

		err := f.svc.RestorePage(ctx, alice, b.ID)
		assert.ErrorIs(t, err, domain.ErrNotTrashed)
	})

	t.Run("append", func(t *testing.T) {
		f := newFixture(t, WithRestorePolicy(RestoreAppend))
		ctx := context.Background()
		a := f.page(t, alice, "a")
		f.page(t, alice, "b")
		f.page(t, alice, "c")

		require.NoError(t, f.svc.DeletePage(ctx, alice, a.ID))
		require.NoError(t, f.svc.RestorePage(ctx, alice, a.ID))

		assert.Equal(t, []int{0, 1, 2}, f.pagePositions(t, alice))
		got, err := f.svc.GetPage(ctx, alice, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Position)
	})
}

func TestPurgePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.page(t, alice, "a")
	b := f.page(t, alice, "b")
	f.page(t, alice, "c")
	f.block(t, alice, b.ID, "x", nil)

	err := f.svc.PurgePage(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotTrashed)

	require.NoError(t, f.svc.DeletePage(ctx, alice, b.ID))
	err = f.svc.PurgePage(ctx, bob, b.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.PurgePage(ctx, alice, b.ID))
	assert.Equal(t, []int{0, 1}, f.pagePositions(t, alice))

	_, err = f.svc.GetPage(ctx, alice, b.ID)
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	trash, err := f.svc.ListTrash(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestReorderPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.page(t, alice, "a")
	b := f.page(t, alice, "b")
	c := f.page(t, alice, "c")
	foreign := f.page(t, bob, "x")

	pages, err := f.svc.ReorderPages(ctx, alice, []string{c.ID, foreign.ID, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{pages[0].ID, pages[1].ID, pages[2].ID})
	assert.Equal(t, 0, pages[0].Position)
	assert.Equal(t, 3, pages[2].Position)

	got, err := f.svc.GetPage(ctx, bob, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Position)

	_, err = f.svc.ReorderPages(ctx, alice, []string{})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestPageOwnershipAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "draft")

	_, err := f.svc.GetPage(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.KindForbidden, domain.Kind(err))

	_, err = f.svc.GetPage(ctx, alice, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	err = f.svc.DeletePage(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, []int{0}, f.pagePositions(t, alice))

	title := "Final"
	got, err := f.svc.UpdatePage(ctx, alice, p.ID, &title)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, 0, got.Position)

	_, err = f.svc.UpdatePage(ctx, bob, p.ID, &title)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	blank := "   "
	_, err = f.svc.UpdatePage(ctx, alice, p.ID, &blank)
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
}

func TestListPagesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groceries := f.page(t, alice, "Groceries")
	f.page(t, alice, "Work log")
	tag, err := f.svc.CreateTag(ctx, alice, " Home ")
	require.NoError(t, err)
	require.NoError(t, f.svc.AttachTag(ctx, alice, groceries.ID, tag.ID))

	pages, err := f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice, Search: "GROC"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, groceries.ID, pages[0].ID)

	pages, err = f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice, TagIDs: []string{tag.ID}})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Tags, 1)
	assert.Equal(t, "home", pages[0].Tags[0].Name)

	pages, err = f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice, SortBy: domain.SortTitle, SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Groceries", pages[0].Title)

	_, err = f.svc.ListPages(ctx, &domain.PageFilter{UserID: alice, SortBy: "size"})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.page(t, alice, "p")

	tag, err := f.svc.CreateTag(ctx, alice, "Ideas")
	require.NoError(t, err)
	assert.Equal(t, "ideas", tag.Name)

	_, err = f.svc.CreateTag(ctx, alice, " IDEAS")
	assert.ErrorIs(t, err, domain.ErrTagExists)
	assert.Equal(t, domain.KindConflict, domain.Kind(err))

	_, err = f.svc.CreateTag(ctx, bob, "ideas")
	require.NoError(t, err)

	require.NoError(t, f.svc.AttachTag(ctx, alice, p.ID, tag.ID))
	err = f.svc.AttachTag(ctx, alice, p.ID, tag.ID)
	assert.ErrorIs(t, err, domain.ErrTagAlreadyOnPage)

	tags, err := f.svc.ListTags(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].PageCount)

	onPage, err := f.svc.ListPageTags(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, onPage, 1)

	_, err = f.svc.GetTag(ctx, bob, tag.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	err = f.svc.AttachTag(ctx, bob, p.ID, tag.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.DetachTag(ctx, alice, p.ID, tag.ID))
	err = f.svc.DetachTag(ctx, alice, p.ID, tag.ID)
	assert.ErrorIs(t, err, domain.ErrTagNotOnPage)

	require.NoError(t, f.svc.AttachTag(ctx, alice, p.ID, tag.ID))
	require.NoError(t, f.svc.DeleteTag(ctx, alice, tag.ID))
	onPage, err = f.svc.ListPageTags(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Empty(t, onPage)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := &auth.Identity{
		UserID: "33333333-3333-3333-3333-333333333333",
		Email:  "carol@example.com",
		UserMetadata: map[string]any{
			"full_name":  "Carol C",
			"avatar_url": "https://cdn.example.com/c.png",
		},
	}
	u, err := f.svc.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Carol C", u.Name)
	require.NotNil(t, u.Avatar)

	name := "Carol"
	_, err = f.svc.UpdateProfile(ctx, id.UserID, &name, nil)
	require.NoError(t, err)

	u, err = f.svc.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Carol", u.Name)

	u, err = f.svc.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "1111", u.Name)

	bad := "ftp://example.com/x.png"
	_, err = f.svc.UpdateProfile(ctx, alice, nil, &bad)
	assert.ErrorIs(t, err, domain.ErrInvalidAvatar)

	empty := "  "
	_, err = f.svc.UpdateProfile(ctx, alice, &empty, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.failPut {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "http://blobs.local/" + key, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func upload(name, contentType, body string) Upload {
	return Upload{Name: name, ContentType: contentType, Size: int64(len(body)), Body: bytes.NewBufferString(body)}
}

func TestMedia(t *testing.T) {
	blobs := newMemBlobs()
	f := newFixture(t, WithBlobStore(blobs), WithMaxUploadBytes(16))
	ctx := context.Background()

	m, err := f.svc.UploadFile(ctx, alice, "", upload("Notes.MD", "text/markdown", "# hi"))
	require.NoError(t, err)
	assert.Equal(t, "general", m.Folder)
	assert.True(t, strings.HasPrefix(m.Key, "notely/general/"))
	assert.True(t, strings.HasSuffix(m.Key, ".md"))
	assert.Equal(t, "http://blobs.local/"+m.Key, m.URL)

	_, err = f.svc.UploadFile(ctx, alice, "", upload("a.exe", "application/x-msdownload", "MZ"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	_, err = f.svc.UploadFile(ctx, alice, "", upload("big.txt", "text/plain", strings.Repeat("x", 17)))
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	many, err := f.svc.UploadFiles(ctx, alice, "img", []Upload{
		upload("a.png", "image/png", "a"),
		upload("b.png", "image/png", "b"),
	})
	require.NoError(t, err)
	assert.Len(t, many, 2)
	assert.Equal(t, 3, blobs.len())

	_, err = f.svc.UploadFiles(ctx, alice, "", []Upload{upload("ok.png", "image/png", "a"), upload("bad.exe", "application/x-msdownload", "b")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	assert.Equal(t, 3, blobs.len())

	var eleven []Upload
	for i := 0; i < 11; i++ {
		eleven = append(eleven, upload("a.png", "image/png", "a"))
	}
	_, err = f.svc.UploadFiles(ctx, alice, "", eleven)
	assert.ErrorIs(t, err, domain.ErrTooManyFiles)

	_, err = f.svc.UploadFiles(ctx, alice, "", nil)
	assert.ErrorIs(t, err, domain.ErrNoFiles)

	list, err := f.svc.ListMedia(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	err = f.svc.DeleteMedia(ctx, bob, m.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.DeleteMedia(ctx, alice, m.ID))
	assert.Equal(t, 2, blobs.len())
	err = f.svc.DeleteMedia(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)
}

func TestMediaWithoutStorage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UploadFile(context.Background(), alice, "", upload("a.png", "image/png", "a"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

type memIndex struct {
	mu    sync.Mutex
	pages map[string]*domain.Page
	fail  bool
}

func newMemIndex() *memIndex { return &memIndex{pages: map[string]*domain.Page{}} }

func (m *memIndex) IndexPage(_ context.Context, p *domain.Page, _ []*domain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.pages[p.ID] = &cp
	return nil
}

func (m *memIndex) RemovePage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	return nil
}

func (m *memIndex) SearchPages(_ context.Context, userID, query string, _ int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("index down")
	}
	var ids []string
	for id, p := range m.pages {
		if p.UserID == userID && strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memIndex) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pages[id]
	return ok
}

func TestSearch(t *testing.T) {
	idx := newMemIndex()
	f := newFixture(t, WithPageIndex(idx))
	ctx := context.Background()

	recipes := f.page(t, alice, "Recipes")
	notes := f.page(t, alice, "Notes")
	f.block(t, alice, notes.ID, "pancake recipe", nil)
	f.page(t, bob, "Recipes too")

	assert.True(t, idx.has(recipes.ID))

	pages, err := f.svc.Search(ctx, alice, "recipe")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, recipes.ID, pages[0].ID)

	idx.fail = true
	pages, err = f.svc.Search(ctx, alice, "recipe")
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	idx.fail = false

	require.NoError(t, f.svc.DeletePage(ctx, alice, recipes.ID))
	assert.False(t, idx.has(recipes.ID))
	require.NoError(t, f.svc.RestorePage(ctx, alice, recipes.ID))
	assert.True(t, idx.has(recipes.ID))

	_, err = f.svc.Search(ctx, alice, "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

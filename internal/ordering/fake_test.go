package ordering

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memItem struct {
	id      string
	parent  string
	pos     int
	deleted bool
	seq     int
}

// memSlots is an in-memory Slots. With readers > 0, Active waits until that
// many callers are reading before taking its snapshot, and Move waits until
// that many snapshots were taken. Both gates give up after a short timeout so
// serialized callers still make progress.
type memSlots struct {
	mu    sync.Mutex
	items map[string]*memItem
	seq   int

	readers  int
	arrived  int
	gate     chan struct{}
	snapped  int
	snapGate chan struct{}
}

const barrierTimeout = 100 * time.Millisecond

func wait(ctx context.Context, gate chan struct{}) error {
	select {
	case <-gate:
		return nil
	case <-time.After(barrierTimeout):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newMemSlots() *memSlots {
	return &memSlots{items: make(map[string]*memItem)}
}

func (m *memSlots) withBarrier(readers int) *memSlots {
	m.readers = readers
	m.gate = make(chan struct{})
	m.snapGate = make(chan struct{})
	return m
}

func (m *memSlots) add(parent string, positions ...int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(positions))
	for i, p := range positions {
		m.seq++
		id := fmt.Sprintf("%s-%02d", parent, m.seq)
		m.items[id] = &memItem{id: id, parent: parent, pos: p, seq: m.seq}
		ids[i] = id
	}
	return ids
}

func (m *memSlots) trash(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[id]
	it.deleted = true
	return it.pos
}

func (m *memSlots) position(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].pos
}

func (m *memSlots) LockParent(context.Context, string) error { return nil }

func (m *memSlots) Active(ctx context.Context, parentID string, after int) ([]Slot, error) {
	if m.readers > 0 {
		m.mu.Lock()
		m.arrived++
		if m.arrived == m.readers {
			close(m.gate)
		}
		m.mu.Unlock()

		if err := wait(ctx, m.gate); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readers > 0 {
		m.snapped++
		if m.snapped == m.readers {
			close(m.snapGate)
		}
	}

	var found []*memItem
	for _, it := range m.items {
		if it.parent == parentID && !it.deleted && it.pos > after {
			found = append(found, it)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].pos != found[j].pos {
			return found[i].pos < found[j].pos
		}
		return found[i].seq < found[j].seq
	})

	out := make([]Slot, len(found))
	for i, it := range found {
		out[i] = Slot{ID: it.id, Position: it.pos}
	}
	return out, nil
}

func (m *memSlots) Move(ctx context.Context, parentID string, moves []Slot) (int64, error) {
	if m.readers > 0 {
		if err := wait(ctx, m.snapGate); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, mv := range moves {
		it, ok := m.items[mv.ID]
		if !ok || it.parent != parentID || it.deleted {
			continue
		}
		it.pos = mv.Position
		n++
	}
	return n, nil
}

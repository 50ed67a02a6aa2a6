package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmehra2102/notely/internal/ordering"
	"go.opentelemetry.io/otel/attribute"
)

// slots implements ordering.Slots for one collection. Table and column
// names come from Store.Slots, never from input.
type slots struct {
	s            *Store
	c            ordering.Collection
	table        string
	parentColumn string
	parentTable  string
}

func (sl *slots) LockParent(ctx context.Context, parentID string) error {
	if sl.s.dialect != Postgres {
		return nil
	}

	ctx, span, cancel := sl.s.start(ctx, "LockParent",
		attribute.String("collection", string(sl.c)),
		attribute.String("parent.id", parentID),
	)
	defer cancel()
	defer span.End()

	query := fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 FOR UPDATE`, sl.parentTable)

	var id string
	err := sl.s.q.QueryRowContext(ctx, query, parentID).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fail(span, "lock parent", err)
	}
	return nil
}

func (sl *slots) Active(ctx context.Context, parentID string, after int) ([]ordering.Slot, error) {
	ctx, span, cancel := sl.s.start(ctx, "ActiveSlots",
		attribute.String("collection", string(sl.c)),
		attribute.String("parent.id", parentID),
		attribute.Int("after", after),
	)
	defer cancel()
	defer span.End()

	query := fmt.Sprintf(`
		SELECT id, position FROM %s
		WHERE %s = $1 AND is_deleted = FALSE AND position > $2
		ORDER BY position ASC, created_at ASC, id ASC`, sl.table, sl.parentColumn)

	rows, err := sl.s.q.QueryContext(ctx, query, parentID, after)
	if err != nil {
		return nil, fail(span, "read positions", err)
	}
	defer rows.Close()

	var out []ordering.Slot
	for rows.Next() {
		var slot ordering.Slot
		if err := rows.Scan(&slot.ID, &slot.Position); err != nil {
			return nil, fail(span, "scan position", err)
		}
		out = append(out, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "read positions", err)
	}
	return out, nil
}

func (sl *slots) Move(ctx context.Context, parentID string, moves []ordering.Slot) (int64, error) {
	if len(moves) == 0 {
		return 0, nil
	}

	ctx, span, cancel := sl.s.start(ctx, "MoveSlots",
		attribute.String("collection", string(sl.c)),
		attribute.String("parent.id", parentID),
		attribute.Int("moves", len(moves)),
	)
	defer cancel()
	defer span.End()

	query := fmt.Sprintf(`
		UPDATE %s SET position = $1
		WHERE id = $2 AND %s = $3 AND is_deleted = FALSE`, sl.table, sl.parentColumn)

	stmt, err := sl.s.q.PrepareContext(ctx, query)
	if err != nil {
		return 0, fail(span, "prepare position update", err)
	}
	defer stmt.Close()

	var total int64
	for _, mv := range moves {
		res, err := stmt.ExecContext(ctx, mv.Position, mv.ID, parentID)
		if err != nil {
			return 0, fail(span, "update position", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fail(span, "update position", err)
		}
		total += n
	}

	span.SetAttributes(attribute.Int64("rows", total))
	return total, nil
}

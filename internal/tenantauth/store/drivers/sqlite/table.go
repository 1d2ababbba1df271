package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// entityColumns trail every table's own columns, in this order.
var entityColumns = []string{
	"enabled", "external_id", "extensors",
	"created_at", "created_by", "created_by_type",
	"updated_at", "updated_by", "updated_by_type",
}

// table implements store.Collection over one SQL table. columns lists the
// entity specific columns after id; filters maps public filter names onto
// columns.
type table[T any] struct {
	q       querier
	name    string
	columns []string
	filters map[string]string

	entity func(*T) *domain.Entity
	dest   func(*T) []any // scan targets for columns
	values func(*T) []any // bind values for columns
}

func (t table[T]) allColumns() []string {
	cols := make([]string, 0, 1+len(t.columns)+len(entityColumns))
	cols = append(cols, "id")
	cols = append(cols, t.columns...)
	return append(cols, entityColumns...)
}

func (t table[T]) selectSQL() string {
	return "SELECT " + strings.Join(t.allColumns(), ", ") + " FROM " + t.name
}

func (t table[T]) scan(row scanner) (*T, error) {
	e := new(T)
	base := t.entity(e)

	var (
		externalID, extensors sql.NullString
		createdBy, createdByT sql.NullString
		updatedBy, updatedByT sql.NullString
		createdAt, updatedAt  sql.NullInt64
	)
	dest := make([]any, 0, 1+len(t.columns)+len(entityColumns))
	dest = append(dest, &base.ID)
	dest = append(dest, t.dest(e)...)
	dest = append(dest,
		&base.Enabled, &externalID, &extensors,
		&createdAt, &createdBy, &createdByT,
		&updatedAt, &updatedBy, &updatedByT,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, mapNotFound(err)
	}

	base.ExternalID = externalID.String
	if extensors.Valid && extensors.String != "" {
		if err := json.Unmarshal([]byte(extensors.String), &base.Extensors); err != nil {
			return nil, fmt.Errorf("decode extensors: %w", err)
		}
	}
	base.History = domain.Record{
		CreatedAt:     fromMillis(createdAt),
		CreatedBy:     createdBy.String,
		CreatedByType: domain.ActorKind(createdByT.String),
		UpdatedAt:     fromMillis(updatedAt),
		UpdatedBy:     updatedBy.String,
		UpdatedByType: domain.ActorKind(updatedByT.String),
	}
	return e, nil
}

func (t table[T]) Get(ctx context.Context, id string) (*T, error) {
	return t.getBy(ctx, "id", id)
}

func (t table[T]) getBy(ctx context.Context, column string, value any) (*T, error) {
	row := t.q.QueryRowContext(ctx, t.selectSQL()+" WHERE "+column+" = ? LIMIT 1", value)
	return t.scan(row)
}

func (t table[T]) where(c store.Criteria) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if c.Enabled != nil {
		conds = append(conds, "enabled = ?")
		args = append(args, *c.Enabled)
	}

	// Sorted so the generated SQL is stable.
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, ok := t.filters[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", store.ErrUnknownField, k)
		}
		conds = append(conds, col+" = ?")
		args = append(args, c.Fields[k])
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (t table[T]) Find(ctx context.Context, c store.Criteria, w store.Window) ([]*T, error) {
	where, args, err := t.where(c)
	if err != nil {
		return nil, err
	}

	query := t.selectSQL() + where + " ORDER BY created_at IS NULL, created_at DESC, id DESC"
	if !w.All {
		query += " LIMIT ? OFFSET ?"
		args = append(args, w.Limit, w.Offset)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t table[T]) Count(ctx context.Context, c store.Criteria) (int, error) {
	where, args, err := t.where(c)
	if err != nil {
		return 0, err
	}
	var n int
	err = t.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+where, args...).Scan(&n)
	return n, err
}

// Save upserts e by id.
func (t table[T]) Save(ctx context.Context, e *T) error {
	base := t.entity(e)

	extensors, err := encodeExtensors(base.Extensors)
	if err != nil {
		return err
	}

	h := base.History
	args := make([]any, 0, 1+len(t.columns)+len(entityColumns))
	args = append(args, base.ID)
	args = append(args, t.values(e)...)
	args = append(args,
		base.Enabled, nullString(base.ExternalID), extensors,
		toMillis(h.CreatedAt), nullString(h.CreatedBy), nullString(string(h.CreatedByType)),
		toMillis(h.UpdatedAt), nullString(h.UpdatedBy), nullString(string(h.UpdatedByType)),
	)

	cols := t.allColumns()
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)

	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		return mapConstraint(err)
	}
	return nil
}

// nullableString reads NULL as "".
type nullableString string

func (n *nullableString) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	*n = nullableString(ns.String)
	return nil
}

// millis reads a unix millisecond column into a time.Time.
type millis time.Time

func (m *millis) Scan(src any) error {
	var n sql.NullInt64
	if err := n.Scan(src); err != nil {
		return err
	}
	*m = millis(time.UnixMilli(n.Int64).UTC())
	return nil
}

func encodeExtensors(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode extensors: %w", err)
	}
	return string(b), nil
}

func toMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
	}
	return err
}

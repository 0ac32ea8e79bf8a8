package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// queryBodies runs a query selecting a single body column and decodes every row.
// Returns an empty slice (not nil) when no rows match.
func queryBodies[T any](ctx context.Context, s *Store, op, query string, args ...any) ([]T, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, "", "", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, classify(op, "", "", err)
		}
		rec, err := unmarshalBody[T](body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(op, "", "", err)
	}

	return out, nil
}

// queryBody loads one body by primary key.
// found is false, with a nil error, when the key does not exist.
func queryBody[T any](ctx context.Context, s *Store, op string, coll Collection, key, query string) (T, bool, error) {
	var zero T
	if err := s.checkOpen(op); err != nil {
		return zero, false, err
	}

	var body string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, classify(op, coll, key, err)
	}

	rec, err := unmarshalBody[T](body)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// exec runs a single write statement and returns the affected row count.
func (s *Store) exec(ctx context.Context, op string, coll Collection, key, query string, args ...any) (int64, error) {
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(op, coll, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, coll, key, err)
	}
	return n, nil
}

// Range bounds a timestamp index scan. Both ends are ISO-8601 strings
// compared lexicographically; an empty bound is open. From is inclusive,
// To is exclusive.
type Range struct {
	From string
	To   string
}

// where renders the range as SQL conditions on column.
func (r Range) where(column string) (string, []any) {
	var conds []string
	var args []any
	if r.From != "" {
		conds = append(conds, column+" >= ?")
		args = append(args, r.From)
	}
	if r.To != "" {
		conds = append(conds, column+" < ?")
		args = append(args, r.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/roach88/credwallet/internal/record"
)

// PutSetting inserts a setting, failing with ErrDuplicateKey if the key exists.
func (s *Store) PutSetting(ctx context.Context, st record.Setting) error {
	const op = "put setting"
	value, err := normalizeValue(st.Key, st.Value)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, op, Settings, st.Key, `
		INSERT INTO settings (key, value) VALUES (?, ?)
	`, st.Key, value)
	return err
}

// SetSetting creates or replaces a setting. Calling it twice with the same
// value leaves the store as a single call would. An existing key keeps its
// original position in ListSettings.
func (s *Store) SetSetting(ctx context.Context, st record.Setting) error {
	const op = "set setting"
	value, err := normalizeValue(st.Key, st.Value)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, op, Settings, st.Key, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, st.Key, value)
	return err
}

// GetSetting retrieves a setting by key.
// found is false if no such key exists.
func (s *Store) GetSetting(ctx context.Context, key string) (record.Setting, bool, error) {
	const op = "get setting"
	if err := s.checkOpen(op); err != nil {
		return record.Setting{}, false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Setting{}, false, nil
	}
	if err != nil {
		return record.Setting{}, false, classify(op, Settings, key, err)
	}
	return record.Setting{Key: key, Value: json.RawMessage(value)}, true, nil
}

// MustGetSetting retrieves a setting by key, reporting ErrNotFound if absent.
func (s *Store) MustGetSetting(ctx context.Context, key string) (record.Setting, error) {
	const op = "must get setting"
	st, found, err := s.GetSetting(ctx, key)
	if err != nil {
		return record.Setting{}, err
	}
	if !found {
		return record.Setting{}, &KeyError{Op: op, Collection: Settings, Key: key, Err: ErrNotFound}
	}
	return st, nil
}

// DeleteSetting removes a setting. Deleting a missing key is a no-op.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.exec(ctx, "delete setting", Settings, key, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ListSettings returns every setting in insertion order.
func (s *Store) ListSettings(ctx context.Context) ([]record.Setting, error) {
	const op = "list settings"
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY seq ASC`)
	if err != nil {
		return nil, classify(op, Settings, "", err)
	}
	defer rows.Close()

	out := []record.Setting{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, classify(op, Settings, "", err)
		}
		out = append(out, record.Setting{Key: key, Value: json.RawMessage(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, Settings, "", err)
	}
	return out, nil
}

// Package sqlite persists attribute history across gateway restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/obarth/ogate/internal/history"
	"github.com/obarth/ogate/internal/object"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	object_name TEXT NOT NULL,
	attribute TEXT NOT NULL,
	value TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_series
	ON history_entries (kind, object_name, attribute, recorded_at);
`

// Repository is a durable archive of history entries.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path and applies the
// schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Append stores one entry. Values are serialized as JSON.
func (r *Repository) Append(ctx context.Context, key history.Key, value any, at time.Time) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode history value: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO history_entries (kind, object_name, attribute, value, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		key.Kind, key.Name.String(), key.Attribute, string(encoded), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries of one series, oldest first.
func (r *Repository) Recent(ctx context.Context, key history.Key, limit int) ([]history.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT value, recorded_at FROM history_entries
		 WHERE kind = ? AND object_name = ? AND attribute = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		key.Kind, key.Name.String(), key.Attribute, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var encoded string
		var at time.Time
		if err := rows.Scan(&encoded, &at); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			return nil, fmt.Errorf("decode history value: %w", err)
		}
		entries = append(entries, history.Entry{Value: value, Timestamp: at})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse the DESC page so callers always see oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Prune deletes entries recorded before the cutoff and returns how many
// were removed.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM history_entries WHERE recorded_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return result.RowsAffected()
}

// Series lists the distinct tracked series present in the archive.
func (r *Repository) Series(ctx context.Context) ([]history.Key, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT kind, object_name, attribute FROM history_entries ORDER BY object_name, attribute, kind`)
	if err != nil {
		return nil, fmt.Errorf("query history series: %w", err)
	}
	defer rows.Close()

	var keys []history.Key
	for rows.Next() {
		var kind, rawName, attribute string
		if err := rows.Scan(&kind, &rawName, &attribute); err != nil {
			return nil, fmt.Errorf("scan history series: %w", err)
		}
		name, err := object.ParseName(rawName)
		if err != nil {
			return nil, fmt.Errorf("archived name %q: %w", rawName, err)
		}
		keys = append(keys, history.Key{Kind: kind, Name: name, Attribute: attribute})
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

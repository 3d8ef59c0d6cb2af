package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AppendHistory records a successful wallpaper application.
func (d *Database) AppendHistory(ctx context.Context, resourceID int64) error {
	return d.withTx(ctx, "append_history", func(tx *sql.Tx) error {
		if err := ensureResource(ctx, tx, resourceID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO history (resource_id, created_at) VALUES (?, ?)", resourceID, nowMs())
		return err
	})
}

// RecentHistoryIDs returns the resource ids of the last n history rows,
// newest first. Ids repeat when a resource was applied more than once.
func (d *Database) RecentHistoryIDs(ctx context.Context, n int) (ids []int64, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_history", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT resource_id FROM history ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastHistory returns the most recent history row. ok is false when the
// history is empty.
func (d *Database) LastHistory(ctx context.Context) (entry HistoryEntry, ok bool, err error) {
	start := time.Now()
	defer func() { recordQuery("last_history", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx,
		"SELECT id, resource_id, created_at FROM history ORDER BY id DESC LIMIT 1").
		Scan(&entry.ID, &entry.ResourceID, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryEntry{}, false, nil
	}
	if err != nil {
		return HistoryEntry{}, false, err
	}
	return entry, true, nil
}

// CountHistory returns the number of history rows.
func (d *Database) CountHistory(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_history", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&n)
	return n, err
}

// HistoryAt returns the resource recorded at index in newest-first order.
// Index 0 is the current wallpaper.
func (d *Database) HistoryAt(ctx context.Context, index int) (r Resource, err error) {
	start := time.Now()
	defer func() { recordQuery("history_at", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	row := d.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM history h
		JOIN resources r ON r.id = h.resource_id
		ORDER BY h.id DESC
		LIMIT 1 OFFSET ?`, index)
	r, err = scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return r, err
}

// ListHistory returns up to limit history rows, newest first.
func (d *Database) ListHistory(ctx context.Context, limit int) (list []HistoryEntry, err error) {
	start := time.Now()
	defer func() { recordQuery("list_history", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, resource_id, created_at FROM history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.ResourceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

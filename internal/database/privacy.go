package database

import (
	"context"
	"database/sql"
)

// AddPrivacy hides a resource from every scope except privacy and history.
func (d *Database) AddPrivacy(ctx context.Context, id int64) error {
	return d.withTx(ctx, "add_privacy", func(tx *sql.Tx) error {
		if err := ensureResource(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO privacy_resources (resource_id, created_at) VALUES (?, ?)", id, nowMs())
		return err
	})
}

// RemovePrivacy makes a resource visible again and reports whether it was hidden.
func (d *Database) RemovePrivacy(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := d.withTx(ctx, "remove_privacy", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM privacy_resources WHERE resource_id = ?", id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	return removed, err
}

// TogglePrivacy flips privacy membership and returns the new state.
func (d *Database) TogglePrivacy(ctx context.Context, id int64) (bool, error) {
	var private bool
	err := d.withTx(ctx, "toggle_privacy", func(tx *sql.Tx) error {
		if err := ensureResource(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM privacy_resources WHERE resource_id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO privacy_resources (resource_id, created_at) VALUES (?, ?)", id, nowMs())
		private = err == nil
		return err
	})
	return private, err
}

// IsPrivate reports whether a resource is privacy-marked.
func (d *Database) IsPrivate(ctx context.Context, id int64) (bool, error) {
	return d.exists(ctx, "is_private", "SELECT 1 FROM privacy_resources WHERE resource_id = ?", id)
}

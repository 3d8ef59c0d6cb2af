package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ensureResource returns ErrNotFound when id is not catalogued.
func ensureResource(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM resources WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// AddFavorite adds a resource to favorites. Favoriting it again increments
// its count instead of adding a row.
func (d *Database) AddFavorite(ctx context.Context, id int64) error {
	return d.withTx(ctx, "add_favorite", func(tx *sql.Tx) error {
		if err := ensureResource(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO favorites (resource_id, count, created_at)
			VALUES (?, 1, ?)
			ON CONFLICT(resource_id) DO UPDATE SET count = count + 1`,
			id, nowMs())
		return err
	})
}

// RemoveFavorite removes a resource from favorites and reports whether it
// was one.
func (d *Database) RemoveFavorite(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := d.withTx(ctx, "remove_favorite", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE resource_id = ?", id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	return removed, err
}

// ToggleFavorite flips favorite membership and returns the new state.
func (d *Database) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	var favorite bool
	err := d.withTx(ctx, "toggle_favorite", func(tx *sql.Tx) error {
		if err := ensureResource(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE resource_id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO favorites (resource_id, count, created_at) VALUES (?, 1, ?)", id, nowMs())
		favorite = err == nil
		return err
	})
	return favorite, err
}

// IsFavorite reports whether a resource is a favorite.
func (d *Database) IsFavorite(ctx context.Context, id int64) (bool, error) {
	return d.exists(ctx, "is_favorite", "SELECT 1 FROM favorites WHERE resource_id = ?", id)
}

// FavoriteCount returns how many times a resource was favorited, 0 if never.
func (d *Database) FavoriteCount(ctx context.Context, id int64) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("favorite_count", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, "SELECT count FROM favorites WHERE resource_id = ?", id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (d *Database) exists(ctx context.Context, operation, query string, args ...any) (found bool, err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	var one int
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallswitch/internal/metrics"
)

const resourceColumns = `r.id, r.resource_name, r.file_path, r.file_name, r.file_ext, r.file_type,
	r.file_size, r.url, r.author, r.link, r.title, r.description, r.width, r.height,
	r.quality, r.is_landscape, r.atime_ms, r.mtime_ms, r.ctime_ms, r.created_at, r.updated_at`

const insertResourceSQL = `
	INSERT %s INTO resources (
		resource_name, file_path, file_name, file_ext, file_type, file_size,
		url, author, link, title, description, width, height, quality, is_landscape,
		atime_ms, mtime_ms, ctime_ms, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (Resource, error) {
	var r Resource
	err := s.Scan(
		&r.ID, &r.ResourceName, &r.FilePath, &r.FileName, &r.FileExt, &r.FileType,
		&r.FileSize, &r.URL, &r.Author, &r.Link, &r.Title, &r.Desc, &r.Width, &r.Height,
		&r.Quality, &r.IsLandscape, &r.AtimeMs, &r.MtimeMs, &r.CtimeMs, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func collectResources(rows *sql.Rows) ([]Resource, error) {
	defer rows.Close()

	var list []Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func insertArgs(r *Resource) []any {
	now := nowMs()
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	if r.UpdatedAt == 0 {
		r.UpdatedAt = now
	}
	return []any{
		r.ResourceName, r.FilePath, r.FileName, r.FileExt, r.FileType, r.FileSize,
		r.URL, r.Author, r.Link, r.Title, r.Desc, r.Width, r.Height, r.Quality, r.IsLandscape,
		r.AtimeMs, r.MtimeMs, r.CtimeMs, r.CreatedAt, r.UpdatedAt,
	}
}

// InsertResourcesIgnore inserts rows in one transaction, skipping any whose
// file_path is already catalogued. It returns the number of new rows.
func (d *Database) InsertResourcesIgnore(ctx context.Context, list []Resource) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}

	inserted := 0
	err := d.withTx(ctx, "insert_resources", func(tx *sql.Tx) (err error) {
		inserted, err = insertIgnoreTx(ctx, tx, list)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.DBRowsAffected.WithLabelValues("insert_resources").Observe(float64(inserted))
	return inserted, nil
}

// ApplyScan stores one refresh result in a single transaction: new rows are
// inserted as by InsertResourcesIgnore, and each modified row, matched by ID,
// gets the file's current size, times and metrics. A modified row whose
// metrics could not be computed is left unscored for the quality backfill.
func (d *Database) ApplyScan(ctx context.Context, inserts, modified []Resource) (inserted, updated int, err error) {
	if len(inserts) == 0 && len(modified) == 0 {
		return 0, 0, nil
	}

	err = d.withTx(ctx, "apply_scan", func(tx *sql.Tx) error {
		var err error
		if inserted, err = insertIgnoreTx(ctx, tx, inserts); err != nil {
			return err
		}
		updated, err = updateModifiedTx(ctx, tx, modified)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	metrics.DBRowsAffected.WithLabelValues("insert_resources").Observe(float64(inserted))
	metrics.DBRowsAffected.WithLabelValues("update_modified").Observe(float64(updated))
	return inserted, updated, nil
}

func insertIgnoreTx(ctx context.Context, tx *sql.Tx, list []Resource) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(insertResourceSQL, "OR IGNORE"))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range list {
		res, err := stmt.ExecContext(ctx, insertArgs(&list[i])...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", list[i].FilePath, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func updateModifiedTx(ctx context.Context, tx *sql.Tx, list []Resource) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE resources
		SET file_size = ?, atime_ms = ?, mtime_ms = ?, ctime_ms = ?,
			width = ?, height = ?, quality = ?, is_landscape = ?, updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	now := nowMs()
	updated := 0
	for _, r := range list {
		res, err := stmt.ExecContext(ctx,
			r.FileSize, r.AtimeMs, r.MtimeMs, r.CtimeMs,
			r.Width, r.Height, r.Quality, r.IsLandscape, now, r.ID)
		if err != nil {
			return 0, fmt.Errorf("update %s: %w", r.FilePath, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated++
		}
	}
	return updated, nil
}

// InsertResource inserts one resource. When the file_path is already
// catalogued the existing row is returned with created set to false.
func (d *Database) InsertResource(ctx context.Context, r Resource) (Resource, bool, error) {
	var id int64
	err := d.withTx(ctx, "insert_resource", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(insertResourceSQL, ""), insertArgs(&r)...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			existing, getErr := d.GetResourceByPath(ctx, r.FilePath)
			if getErr != nil {
				return Resource{}, false, fmt.Errorf("lookup existing %s: %w", r.FilePath, getErr)
			}
			return existing, false, nil
		}
		return Resource{}, false, fmt.Errorf("insert resource: %w", err)
	}

	r.ID = id
	return r, true, nil
}

// GetResource returns the resource with the given id.
func (d *Database) GetResource(ctx context.Context, id int64) (Resource, error) {
	return d.getResource(ctx, "get_resource", "r.id = ?", id)
}

// GetResourceByPath returns the resource catalogued at path.
func (d *Database) GetResourceByPath(ctx context.Context, path string) (Resource, error) {
	return d.getResource(ctx, "get_resource", "r.file_path = ?", path)
}

func (d *Database) getResource(ctx context.Context, operation, where string, arg any) (r Resource, err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+resourceColumns+" FROM resources r WHERE "+where, arg)
	r, err = scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return r, err
}

// KnownFiles returns path and mtime for every resource tagged resourceName.
func (d *Database) KnownFiles(ctx context.Context, resourceName string) (list []KnownFile, err error) {
	start := time.Now()
	defer func() { recordQuery("known_files", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, file_path, mtime_ms FROM resources WHERE resource_name = ?", resourceName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k KnownFile
		if err := rows.Scan(&k.ID, &k.FilePath, &k.MtimeMs); err != nil {
			return nil, err
		}
		list = append(list, k)
	}
	return list, rows.Err()
}

// CountResources counts resources tagged resourceName. An empty name counts
// every resource.
func (d *Database) CountResources(ctx context.Context, resourceName string) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_resources", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	if resourceName == "" {
		err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources").Scan(&n)
		return n, err
	}
	err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM resources WHERE resource_name = ?", resourceName).Scan(&n)
	return n, err
}

// unscoredWhere matches images whose metrics were never computed. Probed
// images below 2K also have an empty quality, so width is the marker.
const unscoredWhere = "file_type = 'image' AND width = 0 AND quality = ''"

// ListUnscored pages through images awaiting metric computation.
func (d *Database) ListUnscored(ctx context.Context, limit, offset int) (list []UnscoredItem, err error) {
	start := time.Now()
	defer func() { recordQuery("list_unscored", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, file_path FROM resources WHERE "+unscoredWhere+" ORDER BY id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u UnscoredItem
		if err := rows.Scan(&u.ID, &u.FilePath); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// UpdateMetrics writes computed metrics in one transaction and returns the
// number of rows changed.
func (d *Database) UpdateMetrics(ctx context.Context, updates []MetricsUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	updated := 0
	err := d.withTx(ctx, "update_metrics", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE resources
			SET quality = ?, width = ?, height = ?, is_landscape = ?, updated_at = ?
			WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := nowMs()
		for _, u := range updates {
			res, err := stmt.ExecContext(ctx, u.Quality, u.Width, u.Height, u.IsLandscape, now, u.ID)
			if err != nil {
				return fmt.Errorf("update metrics for %d: %w", u.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.DBRowsAffected.WithLabelValues("update_metrics").Observe(float64(updated))
	return updated, nil
}

// DeleteResource removes a resource together with its favorite, history and
// privacy rows in one transaction. It returns the deleted row.
func (d *Database) DeleteResource(ctx context.Context, id int64) (Resource, error) {
	var deleted Resource
	err := d.withTx(ctx, "delete_resource", func(tx *sql.Tx) error {
		r, err := scanResource(tx.QueryRowContext(ctx,
			"SELECT "+resourceColumns+" FROM resources r WHERE r.id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		deleted = r

		for _, q := range []string{
			"DELETE FROM favorites WHERE resource_id = ?",
			"DELETE FROM history WHERE resource_id = ?",
			"DELETE FROM privacy_resources WHERE resource_id = ?",
			"DELETE FROM resources WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Resource{}, err
	}
	return deleted, nil
}

// ListExpiredDownloads returns downloaded resources created before cutoffMs
// that are neither favorites nor privacy-marked.
func (d *Database) ListExpiredDownloads(ctx context.Context, cutoffMs int64, limit int) (list []Resource, err error) {
	start := time.Now()
	defer func() { recordQuery("list_expired", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources r
		WHERE r.resource_name != ?
		  AND r.created_at < ?
		  AND NOT EXISTS (SELECT 1 FROM favorites f WHERE f.resource_id = r.id)
		  AND NOT EXISTS (SELECT 1 FROM privacy_resources p WHERE p.resource_id = r.id)
		ORDER BY r.created_at ASC, r.id ASC
		LIMIT ?`, LocalResourceName, cutoffMs, limit)
	if err != nil {
		return nil, err
	}
	return collectResources(rows)
}

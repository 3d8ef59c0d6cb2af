package catalog

import (
	"context"
	"errors"
	"fmt"

	"wallswitch/internal/database"
	"wallswitch/internal/filesystem"
	"wallswitch/internal/logging"
)

var log = logging.Component("catalog")

// ErrInvalidSort is returned for a sort field outside the whitelist.
var ErrInvalidSort = errors.New("invalid sort field")

// Catalog is the query and mutation surface used by the CLI and the
// scheduled jobs.
type Catalog struct {
	db    *database.Database
	retry filesystem.RetryConfig
}

// New creates a Catalog. Deletes use filesystem.DefaultRetryConfig.
func New(db *database.Database) *Catalog {
	return &Catalog{db: db, retry: filesystem.DefaultRetryConfig()}
}

// SetRetryConfig overrides the delete retry policy.
func (c *Catalog) SetRetryConfig(cfg filesystem.RetryConfig) {
	c.retry = cfg
}

// Search returns one page of a scope.
func (c *Catalog) Search(ctx context.Context, scope database.Scope, f database.Filters, p database.Page) (*database.SearchResult, error) {
	if p.SortField != "" && !database.ValidSortField(p.SortField) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, p.SortField)
	}
	return c.db.Search(ctx, scope, f, p)
}

// Get returns one resource.
func (c *Catalog) Get(ctx context.Context, id int64) (database.Resource, error) {
	return c.db.GetResource(ctx, id)
}

// ToggleFavorite flips membership and reports whether the resource is now a
// member. With isPrivacy set it targets the privacy exclusion set.
func (c *Catalog) ToggleFavorite(ctx context.Context, id int64, isPrivacy bool) (bool, error) {
	if isPrivacy {
		return c.db.TogglePrivacy(ctx, id)
	}
	return c.db.ToggleFavorite(ctx, id)
}

// AddToFavorites adds membership. Repeated favorite adds increment the
// favorite counter; privacy adds are idempotent.
func (c *Catalog) AddToFavorites(ctx context.Context, id int64, isPrivacy bool) error {
	if isPrivacy {
		return c.db.AddPrivacy(ctx, id)
	}
	return c.db.AddFavorite(ctx, id)
}

// RemoveFavorites removes membership and reports whether a row was removed.
func (c *Catalog) RemoveFavorites(ctx context.Context, id int64, isPrivacy bool) (bool, error) {
	if isPrivacy {
		return c.db.RemovePrivacy(ctx, id)
	}
	return c.db.RemoveFavorite(ctx, id)
}

// DeleteResource unlinks the resource's file and deletes its row together
// with favorite, history and privacy rows. Transient failures are retried
// with backoff; ErrNotFound is returned immediately.
func (c *Catalog) DeleteResource(ctx context.Context, id int64) (database.Resource, error) {
	var deleted database.Resource

	err := filesystem.Retry(ctx, c.retry, func(ctx context.Context) error {
		r, err := c.db.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if err := filesystem.RemoveIfExists(r.FilePath); err != nil {
			return fmt.Errorf("remove %s: %w", r.FilePath, err)
		}
		deleted, err = c.db.DeleteResource(ctx, id)
		return err
	}, func(err error) bool {
		return !errors.Is(err, database.ErrNotFound)
	})
	if err != nil {
		return database.Resource{}, err
	}

	log.Info("Deleted resource %d (%s)", deleted.ID, deleted.FilePath)
	return deleted, nil
}

// Stats returns catalog totals.
func (c *Catalog) Stats(ctx context.Context) (database.Stats, error) {
	return c.db.CalculateStats(ctx)
}

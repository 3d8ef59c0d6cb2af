// Package indexer keeps the catalog in step with the local resource folders.
//
// RefreshDirectory sends the configured folders and the catalog's known
// {path, mtime} snapshot to the scanner worker and inserts the returned rows
// in one insert-or-ignore transaction, so re-scanning a path never creates a
// duplicate. HandleQuality backfills width, height, quality tier and
// orientation for images catalogued without them.
//
// Both operations take a named lock from the coordinator. A second caller
// is rejected with an error wrapping coordinator.ErrLocked rather than
// queued, and the lock is released on every return path.
package indexer

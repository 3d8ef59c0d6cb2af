// Package database is the wallpaper catalog store, backed by SQLite.
//
// It holds:
//   - Resources: one row per catalogued file, keyed uniquely by file path
//   - Favorites, with a counter for repeated favoriting
//   - History: an append-only log of applied wallpapers
//   - The privacy exclusion set
//
// The schema is applied with golang-migrate from embedded SQL files. Every
// multi-row write runs in a single transaction through BeginBatch/EndBatch.
// Search and selection queries share one scope/filter builder, so privacy
// exclusion applies uniformly to every scope except privacy and history.
package database

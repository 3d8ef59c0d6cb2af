// Package catalog exposes search, favorites, privacy marking and deletion
// over the catalog store.
package catalog

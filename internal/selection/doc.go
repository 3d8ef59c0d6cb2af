// Package selection chooses the next or previous wallpaper.
//
// Random mode avoids the last ten history entries when anything else
// matches, and refuses to re-apply the current wallpaper. Sequential mode
// walks the configured sort order from the current wallpaper, breaking ties
// by id and wrapping to the first row at the end. Prev walks the history
// itself, newest first, without adding entries. Privacy-marked resources are
// invisible unless the scope is privacy or history.
package selection

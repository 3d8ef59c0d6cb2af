// Package mediatypes classifies catalogued files by extension.
//
// It maps extensions to image or video types, exposes MIME types for
// downloads, and normalizes the user-configured extension allow-list so
// "JPG", ".jpg" and "jpg" compare equal.
package mediatypes

// Package settings loads the user settings file (TOML) that drives scanning,
// selection and the scheduled tasks. Store keeps a snapshot that readers copy
// on every operation, so a reload takes effect on the next call.
package settings

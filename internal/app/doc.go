// Package app wires the catalog, scanner, synchronizer, selection engine,
// remote sources and scheduler into one daemon and registers the periodic
// tasks (autoSwitch, autoRefreshDirectory, handleQuality, autoDownload,
// autoCleanup) from the user settings.
package app

// Command wallctl runs manual operations against the wallswitch catalog:
// directory refresh, quality backfill, next and previous wallpaper, search,
// favorites, privacy exclusions, deletion and settings management.
//
// It reads the same environment as the daemon (DATA_DIR, SETTINGS_FILE,
// DOWNLOAD_DIR, WALLPAPER_COMMAND, SCAN_WORKERS). Output is a table on a
// terminal and JSON otherwise.
package main

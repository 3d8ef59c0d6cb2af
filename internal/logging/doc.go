// Package logging provides the leveled printf-style logger used across
// wallswitch.
//
// Levels, lowest first:
//   - DEBUG: scan batches, query plans, lock decisions
//   - INFO: lifecycle and task summaries
//   - WARN: recoverable problems (unreadable files, skipped ticks)
//   - ERROR: failed operations
//   - FATAL: startup failures that terminate the process
//
// The level comes from DEBUG=1 or LOG_LEVEL. Component loggers created with
// Component prefix every message with the component name and satisfy the
// small logger interfaces used by the scheduler and the scanner worker.
package logging

// Package coordinator serializes background work.
//
// Locks is a registry of named try-locks; a caller that finds its lock held
// is rejected rather than queued. Scheduler drives named periodic tasks on
// robfig/cron, with at most one schedule per key and overlapping ticks
// dropped.
package coordinator

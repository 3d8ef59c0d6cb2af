/*
Package workers sizes goroutine pools from GOMAXPROCS.

runtime.NumCPU reports host CPUs and ignores container limits; GOMAXPROCS
follows them. The scanner uses ForMixed to size its metric-probe pool because
each probe reads a file header and decodes image configuration.

	n := workers.ForMixed(16)

Operators can pin the size with SCAN_WORKERS. The override is still capped by
the caller's limit.
*/
package workers

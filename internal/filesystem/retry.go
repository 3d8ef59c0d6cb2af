package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"wallswitch/internal/logging"
	"wallswitch/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations.
// MaxRetries counts retries after the first attempt.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns 3 attempts in total with a short backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) nextBackoff(backoff time.Duration) time.Duration {
	backoff *= 2
	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// IsTransient reports whether err looks like temporary contention on a file:
// stale handles, busy or locked files, interrupted calls and permission
// errors raised while another process holds the file open.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if isNFSStaleError(err) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EBUSY, syscall.EAGAIN, syscall.EINTR, syscall.ETXTBSY, syscall.EACCES, syscall.EPERM:
			return true
		}
	}
	return false
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		info, err := os.Stat(path)
		if err == nil {
			if attempt > 0 {
				logging.Info("Stat succeeded on retry %d for %s", attempt, path)
			}
			return info, nil
		}

		lastErr = err

		if !isNFSStaleError(err) {
			return nil, err
		}

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues("stat").Inc()
			logging.Debug("Stale file handle for %s, retrying in %v (attempt %d/%d)",
				path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff = config.nextBackoff(backoff)
		}
	}

	logging.Warn("Stat failed after %d retries for %s: %v", config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues("stat").Inc()
	return nil, lastErr
}

// RemoveIfExists deletes path, treating an already missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Retry runs fn until it succeeds, returns an error retryable rejects, the
// attempts are exhausted or ctx is done. A nil retryable retries every error.
func Retry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error, retryable func(error) bool) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logging.Debug("Operation succeeded on attempt %d", attempt+1)
			}
			return nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues("remove").Inc()
			logging.Debug("Attempt %d/%d failed: %v, retrying in %v", attempt+1, config.MaxRetries+1, err, backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			}
			backoff = config.nextBackoff(backoff)
		}
	}

	metrics.FilesystemRetryFailures.WithLabelValues("remove").Inc()
	return fmt.Errorf("failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

/*
Package filesystem provides filesystem operations with bounded retry.

Two kinds of transient failure are absorbed here:

  - NFS stale file handles (ESTALE) on stat, common when wallpaper folders live
    on network mounts and the scanner stats thousands of files.
  - Short-lived contention when a wallpaper file is deleted while another
    process (the desktop shell applying it, an indexer, an antivirus) still holds
    it open. Delete uses Retry around the unlink plus catalog transaction.

Retry only repeats errors its caller classifies as retryable; logic errors such
as a missing catalog row return immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	err := filesystem.Retry(ctx, filesystem.DefaultRetryConfig(), func(ctx context.Context) error {
		return deleteOnce(ctx, id)
	}, func(err error) bool { return !errors.Is(err, database.ErrNotFound) })
*/
package filesystem

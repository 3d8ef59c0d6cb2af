/*
Package scanner walks wallpaper folders and computes image metrics in an
isolated worker goroutine.

The worker is reachable only through a pair of channels carrying Request and
Response values tagged with an Event. It never touches the catalog: callers
pass in a snapshot of known files and receive rows back.

	REFRESH_DIRECTORY              -> REFRESH_DIRECTORY::PROCESSING (large scans only)
	                               -> REFRESH_DIRECTORY::SUCCESS | REFRESH_DIRECTORY::FAIL
	HANDLE_IMAGE_QUALITY           -> HANDLE_IMAGE_QUALITY::SUCCESS | HANDLE_IMAGE_QUALITY::FAIL

Host is the supervisor on the other end. It numbers every request, the
worker echoes the number on each reply, and Host routes on it; a reply whose
caller already gave up is dropped. Host moves between idle,
scanning and processing, and when the worker exits or panics it fails every
waiting caller with ErrWorkerExited, returns to idle and starts a new worker.
*/
package scanner

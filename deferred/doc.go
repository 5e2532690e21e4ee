// Package deferred implements the kernel's named-future coordinator. A
// future can be awaited before any producer exists, queued work for one key
// runs exactly once no matter how many callers queue it, and entries may be
// settled externally by inbound notifications instead of queued work.
// Status transitions are monotonic: pending, then optionally running, then
// exactly one of completed or failed, never reverted.
//
// A registry can optionally emit "deferred:started", "deferred:completed"
// and "deferred:failed" signals through a Notifier; it is fully functional
// without one.
package deferred

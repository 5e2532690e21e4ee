// Package signal implements the kernel's publish/subscribe bus. Signals are
// colon-delimited names ("books:created", "kernel:ready"); subscriptions may
// target an exact name or a pattern where whole segments are replaced by "*"
// ("entity:*", "*:created"). Dispatch is strictly sequential: matching
// subscribers run one at a time in descending priority order, and a handler
// error aborts the remainder of that emission.
//
// The bus has no error boundary. Best-effort fan-out with isolation is
// the hook registry's job; signals are the data-correctness notification
// path.
package signal

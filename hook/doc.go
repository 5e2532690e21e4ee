// Package hook implements named extension points with two dispatch
// protocols. Invoke fans handlers out for side effects behind an error
// boundary. Alter threads a value through a reduction chain with no
// boundary, and the first handler error aborts the pass.
//
// Within one hook, After edges order handlers ahead of anything else;
// remaining ties fall to descending priority and then to registration
// order. Every pass snapshots its handler order up front, so a handler
// unbinding itself or a peer never disturbs the running pass.
package hook

// Package reconciler brings the whitelist of one deployment server class in
// line with a desired list of clients.
//
// A run is strictly sequential and terminal on the first failure:
//
//	Authenticate → CheckExists → {Create | ReadCount → Update} → Reload
//
// Missing classes are created with the clients at whitelist.0 onwards.
// Existing classes get the clients appended at whitelist.<size> onwards,
// where size is the whitelist-size read in the same run. Indices are purely
// positional and clients are not deduplicated against existing entries.
//
// Concurrent runs against the same class race on this read-modify-write and
// can lose updates; callers must serialise them.
//
// Failures are reported in the Result with the deployment error kind and the
// underlying cause rather than collapsed into a generic message. Policy
// controls the two ambiguous cases: an existence check that gives no answer,
// and a reload that fails after the whitelist was written.
package reconciler

// Package checkpoint journals which targets a run has attempted.
//
// Every finished target is written through to a JSON file with a
// write-sync-rename sequence. When a run ends ABORTED the next invocation
// with --resume loads the journal and skips what was already attempted.
package checkpoint

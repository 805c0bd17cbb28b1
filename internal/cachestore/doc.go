// Package cachestore persists named HTTP response stores in SQLite.
//
// A store holds complete responses keyed by root-relative URL. The
// controller keeps one live static store (shell assets populated at
// install) and one live dynamic store (responses cached lazily at
// fetch time); stale versions are garbage-collected at activation.
// Writes replace whole entries, so concurrent writers resolve to
// last-write-wins without partial states.
package cachestore

// Package controller implements the offline cache controller
// lifecycle: install populates the versioned static store from the
// precache manifest, activate garbage-collects stores left behind by
// earlier versions and claims traffic, and control messages can skip
// the waiting phase or prefetch URLs into the dynamic store.
//
// The controller owns no ambient globals; everything is derived from
// Options so multiple versions can run side by side in tests.
package controller

// Package daemon hosts the cache controller. It enforces
// single-instance execution with a file lock, drives the controller
// through install and activation, runs the caching proxy server once
// the controller is active, and exposes the runtime status consumed by
// the control plane.
package daemon

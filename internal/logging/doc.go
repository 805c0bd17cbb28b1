// Package logging configures structured slog loggers for shellcache.
//
// All components log through *slog.Logger instances produced here. The
// package provides a human-readable console handler for interactive
// use, a JSON handler for machine consumption, attribute helpers so
// call sites stay terse, and standardized field names shared across
// the daemon, controller, and interceptor.
package logging

// Package push implements the push notification and background sync
// stubs. Payload parsing never fails hard: a missing or malformed
// payload is reported as not-ok and ignored by callers.
package push

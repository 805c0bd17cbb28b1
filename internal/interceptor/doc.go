// Package interceptor serves intercepted requests cache-first with
// network fallback. GET requests are looked up in the controller's
// static then dynamic store; misses go to the upstream origin, with
// successful responses written back to the dynamic store without
// blocking the caller. When the network fails, document navigations
// receive the cached root shell and everything else a plain-text 408.
// Non-GET requests pass through to the upstream untouched.
package interceptor

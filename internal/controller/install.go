package controller

import (
	"context"
	"fmt"

	"shellcache/internal/logging"
)

// Install populates the static store from the precache manifest. Each
// manifest fetch bypasses intermediate HTTP caches. Individual asset
// failures are logged and swallowed; a missing shell asset degrades to
// a network fetch later rather than blocking activation. Install ends
// in the waiting state, or requests immediate promotion when the
// controller was configured with SkipWaiting.
func (c *Controller) Install(ctx context.Context) error {
	c.setState(StateInstalling)

	staticName := c.StaticStoreName()
	if err := c.store.EnsureStore(ctx, staticName); err != nil {
		return fmt.Errorf("create static store: %w", err)
	}

	precached := 0
	for _, target := range c.opts.StaticManifest {
		entry, err := c.fetchUpstream(ctx, target, true)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("precache fetch failed",
				logging.String(logging.FieldURL, target),
				logging.String(logging.FieldStore, staticName),
				logging.Error(err),
				logging.String(logging.FieldEventType, "precache_failed"),
				logging.String(logging.FieldImpact, "asset unavailable offline until next install"))
			continue
		}
		if err := c.store.Put(ctx, staticName, *entry); err != nil {
			c.logger.Warn("precache store write failed",
				logging.String(logging.FieldURL, target),
				logging.String(logging.FieldStore, staticName),
				logging.Error(err))
			continue
		}
		precached++
	}

	c.logger.Info("install complete",
		logging.String(logging.FieldStore, staticName),
		logging.Int("precached", precached),
		logging.Int("manifest_size", len(c.opts.StaticManifest)),
		logging.String(logging.FieldEventType, "install_complete"))

	c.setState(StateWaiting)
	if c.opts.SkipWaiting {
		c.SkipWaiting()
	}
	return nil
}

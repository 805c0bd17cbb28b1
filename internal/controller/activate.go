package controller

import (
	"context"
	"fmt"

	"shellcache/internal/logging"
)

// Activate garbage-collects stores from prior versions of this
// controller's namespace and takes over traffic. Each stale store is
// deleted independently so one failure does not block the others.
// Stores outside the namespace are never touched.
func (c *Controller) Activate(ctx context.Context) error {
	c.setState(StateActivating)

	if err := c.store.EnsureStore(ctx, c.DynamicStoreName()); err != nil {
		return fmt.Errorf("create dynamic store: %w", err)
	}

	names, err := c.store.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}

	purged := 0
	for _, name := range names {
		if !c.ownsStaleStore(name) {
			continue
		}
		if err := c.store.DeleteStore(ctx, name); err != nil {
			c.logger.Warn("stale store deletion failed",
				logging.String(logging.FieldStore, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "store will be retried at next activation"))
			continue
		}
		purged++
		c.logger.Debug("purged stale store", logging.String(logging.FieldStore, name))
	}

	c.setState(StateActive)
	c.logger.Info("activated",
		logging.String("version", c.opts.Version),
		logging.Int("purged_stores", purged),
		logging.String(logging.FieldEventType, "activate_complete"))
	return nil
}

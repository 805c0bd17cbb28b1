package controller

import (
	"context"
	"encoding/json"

	"shellcache/internal/logging"
)

// EventKind names a runtime event delivered to the controller.
type EventKind string

const (
	EventInstall           EventKind = "install"
	EventActivate          EventKind = "activate"
	EventMessage           EventKind = "message"
	EventPush              EventKind = "push"
	EventSync              EventKind = "sync"
	EventNotificationClick EventKind = "notificationclick"
)

// Control message types understood by the controller.
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageCacheURLs   = "CACHE_URLS"
	MessageGetVersion  = "GET_VERSION"

	replyTypeVersion = "VERSION_RESPONSE"
)

// Message is a control-plane command from the hosting application.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageReply is the optional answer to a control message.
type MessageReply struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
	Stored  int    `json:"stored,omitempty"`
}

// Event is one dispatched runtime event.
type Event struct {
	Kind    EventKind
	Message *Message
	// Payload carries raw push data for EventPush.
	Payload []byte
	// Action carries the clicked notification action for
	// EventNotificationClick.
	Action string
}

// Handler processes one event as a single awaitable unit of work; the
// host keeps the controller alive until it returns.
type Handler func(ctx context.Context, evt Event) error

// Handlers returns the controller's dispatch table. Each entry is one
// complete async operation per event kind, so hosts and tests can
// drive the lifecycle without a real runtime.
func (c *Controller) Handlers() map[EventKind]Handler {
	return map[EventKind]Handler{
		EventInstall: func(ctx context.Context, _ Event) error {
			return c.Install(ctx)
		},
		EventActivate: func(ctx context.Context, _ Event) error {
			return c.Activate(ctx)
		},
		EventMessage: func(ctx context.Context, evt Event) error {
			if evt.Message == nil {
				return nil
			}
			_, _ = c.HandleMessage(ctx, *evt.Message)
			return nil
		},
		EventPush: func(ctx context.Context, evt Event) error {
			if c.push == nil {
				return nil
			}
			return c.push.HandlePush(ctx, evt.Payload)
		},
		EventSync: func(ctx context.Context, _ Event) error {
			if c.push == nil {
				return nil
			}
			return c.push.HandleSync(ctx)
		},
		EventNotificationClick: func(ctx context.Context, evt Event) error {
			if c.push == nil {
				return nil
			}
			return c.push.HandleNotificationClick(ctx, evt.Action)
		},
	}
}

// Dispatch routes evt through the dispatch table. Unknown event kinds
// are logged and ignored.
func (c *Controller) Dispatch(ctx context.Context, evt Event) error {
	handler, ok := c.Handlers()[evt.Kind]
	if !ok {
		c.logger.Debug("ignoring unknown event kind",
			logging.String("kind", string(evt.Kind)))
		return nil
	}
	return handler(ctx, evt)
}

type cacheURLsPayload struct {
	URLs []string `json:"urls"`
}

// HandleMessage executes one control message. The second return value
// reports whether the message type was recognized; unrecognized types
// are logged and ignored, never errors.
func (c *Controller) HandleMessage(ctx context.Context, msg Message) (*MessageReply, bool) {
	switch msg.Type {
	case MessageSkipWaiting:
		c.SkipWaiting()
		return nil, true
	case MessageCacheURLs:
		var payload cacheURLsPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				c.logger.Warn("malformed CACHE_URLS payload",
					logging.Error(err))
				return nil, true
			}
		}
		stored, err := c.CacheURLs(ctx, payload.URLs)
		if err != nil {
			c.logger.Warn("CACHE_URLS failed", logging.Error(err))
		}
		return &MessageReply{Stored: stored}, true
	case MessageGetVersion:
		// The reply identifies the active static store, not the bare
		// version token, so clients can tell deployments apart by
		// store name.
		return &MessageReply{Type: replyTypeVersion, Version: c.StaticStoreName()}, true
	default:
		c.logger.Info("ignoring unknown control message",
			logging.String("type", msg.Type))
		return nil, false
	}
}

package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"shellcache/internal/logging"
)

// Action is one notification action button.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Payload is the JSON shape delivered by a push service.
type Payload struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions,omitempty"`
}

// Parse decodes a push payload. It returns ok=false for absent or
// malformed input; such payloads are ignored without error.
func Parse(raw []byte) (Payload, bool) {
	if len(raw) == 0 {
		return Payload{}, false
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, false
	}
	if strings.TrimSpace(payload.Title) == "" {
		return Payload{}, false
	}
	return payload, true
}

// Notifier displays a notification built from a push payload.
type Notifier interface {
	Show(ctx context.Context, payload Payload) error
}

// LogNotifier writes notifications to the structured log. It is the
// default sink until a real delivery channel exists.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logging.NewComponentLogger(logger, "push")}
}

func (n *LogNotifier) Show(_ context.Context, payload Payload) error {
	n.logger.Info("notification",
		logging.String("title", payload.Title),
		logging.String("body", payload.Body),
		logging.Int("action_count", len(payload.Actions)))
	return nil
}

// Handler reacts to push, background sync, and notification click
// events. Sync is a no-op placeholder; click records intent to open
// the application root.
type Handler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewHandler constructs a Handler. A nil notifier falls back to the
// log notifier.
func NewHandler(notifier Notifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Handler{
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "push"),
	}
}

// HandlePush parses raw and shows a notification. Malformed payloads
// are dropped silently per the control-plane contract.
func (h *Handler) HandlePush(ctx context.Context, raw []byte) error {
	payload, ok := Parse(raw)
	if !ok {
		h.logger.Debug("ignoring empty or malformed push payload",
			logging.Int("payload_bytes", len(raw)))
		return nil
	}
	return h.notifier.Show(ctx, payload)
}

// HandleSync is the background sync placeholder.
func (h *Handler) HandleSync(context.Context) error {
	h.logger.Debug("background sync requested, nothing to do")
	return nil
}

// HandleNotificationClick records the click and the navigation target.
func (h *Handler) HandleNotificationClick(_ context.Context, action string) error {
	h.logger.Info("notification clicked, opening application root",
		logging.String("action", action),
		logging.String(logging.FieldURL, "/"))
	return nil
}

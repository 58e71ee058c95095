package worker

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/ellysus/Momentary/schema"
)

// ErrNavigateUnsupported is returned by window clients that cannot be
// redirected in place.
var ErrNavigateUnsupported = errors.New("window navigation is not supported")

// Defaults substituted for missing payload fields.
const (
	DefaultTitle = "Momentary"
	DefaultIcon  = "/static/icon-192.png"
	DefaultBadge = "/static/badge-96.png"
	DefaultURL   = "/"
)

// NotificationOptions describe the system notification to render. URL is
// stored on the notification so the click handler can route to it later.
type NotificationOptions struct {
	Body  string
	Icon  string
	Badge string
	URL   string
}

// Notification is a rendered notification as handed back by the platform
// on a click event.
type Notification interface {
	Close(ctx context.Context) error
	URL() string
}

// WindowClient is an open app window the click handler can reuse.
type WindowClient interface {
	Focus(ctx context.Context) error
	// Navigate moves the window to a URL. Platforms that cannot
	// navigate an existing window return ErrNavigateUnsupported and
	// the handler settles for the focus alone.
	Navigate(ctx context.Context, url string) error
}

// Platform is the runtime surface of the background worker. Handlers may
// run with no foreground window open at all; the platform keeps the
// worker alive exactly until a handler returns, so handlers finish their
// show or route work before returning.
type Platform interface {
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
	WindowClients(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
}

// Dispatcher turns push payloads into shown notifications and clicks
// into focused or freshly opened windows. It holds no state between
// events, both handlers can run concurrently.
type Dispatcher struct {
	logger   *zap.SugaredLogger
	platform Platform
}

func NewDispatcher(logger *zap.SugaredLogger, platform Platform) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		platform: platform,
	}
}

// HandlePush renders a notification for an incoming push message. The
// payload is JSON; anything unparsable is shown verbatim as the body
// under the default title rather than dropped.
func (d *Dispatcher) HandlePush(ctx context.Context, payload []byte) error {
	var parsed schema.NotificationPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		d.logger.Debugf("Push payload is not JSON, falling back to text: %v", err)
		parsed = schema.NotificationPayload{Body: string(payload)}
	}

	title := parsed.Title
	if title == "" {
		title = DefaultTitle
	}

	opts := NotificationOptions{
		Body:  parsed.Body,
		Icon:  parsed.Icon,
		Badge: parsed.Badge,
		URL:   parsed.URL,
	}
	if opts.Icon == "" {
		opts.Icon = DefaultIcon
	}
	if opts.Badge == "" {
		opts.Badge = DefaultBadge
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}

	// Returning before the notification is shown would let the platform
	// tear the worker down with nothing rendered.
	return d.platform.ShowNotification(ctx, title, opts)
}

// HandleClick closes the clicked notification and routes to its URL,
// reusing an open window when one exists.
func (d *Dispatcher) HandleClick(ctx context.Context, notification Notification) error {
	// Close first so the tray never accumulates
	if err := notification.Close(ctx); err != nil {
		d.logger.Debugf("Failed to close notification: %v", err)
	}

	url := notification.URL()
	if url == "" {
		url = DefaultURL
	}

	clients, err := d.platform.WindowClients(ctx)
	if err != nil {
		return err
	}

	if len(clients) > 0 {
		window := clients[0]
		if err := window.Focus(ctx); err != nil {
			return err
		}
		if err := window.Navigate(ctx, url); err != nil && !errors.Is(err, ErrNavigateUnsupported) {
			return err
		}
		return nil
	}

	return d.platform.OpenWindow(ctx, url)
}

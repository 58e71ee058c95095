package client

import (
	"context"

	"github.com/ellysus/Momentary/schema"
)

// Permission is the outcome of a notification permission request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// SubscribeOptions mirror the push service subscription parameters. Only
// user-visible pushes are ever requested.
type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushService creates push subscriptions. Subscribing twice from the same
// installation returns the existing subscription, never a duplicate.
type PushService interface {
	Subscribe(ctx context.Context, opts SubscribeOptions) (*schema.CreatePushSubscriptionRequest, error)
}

// Platform is the runtime surface the push enrollment pipeline runs
// against. A browser-backed implementation lives out of process; tests
// and the agent binary supply their own.
type Platform interface {
	// Capability probes, all three must hold before enrollment starts.
	SupportsServiceWorker() bool
	SupportsPushManager() bool
	SupportsNotifications() bool

	// RequestNotificationPermission prompts the user. Bound to a user
	// gesture, never retried automatically.
	RequestNotificationPermission(ctx context.Context) (Permission, error)

	// RegisterWorker installs the background worker script, idempotent
	// at the platform level, and exposes its push service.
	RegisterWorker(ctx context.Context, scriptURL string) (PushService, error)
}

// UnsupportedPlatform is the zero platform for environments without any
// push capability, every probe reports false.
type UnsupportedPlatform struct{}

func (UnsupportedPlatform) SupportsServiceWorker() bool { return false }
func (UnsupportedPlatform) SupportsPushManager() bool   { return false }
func (UnsupportedPlatform) SupportsNotifications() bool { return false }

func (UnsupportedPlatform) RequestNotificationPermission(context.Context) (Permission, error) {
	return PermissionDenied, nil
}

func (UnsupportedPlatform) RegisterWorker(context.Context, string) (PushService, error) {
	return nil, nil
}

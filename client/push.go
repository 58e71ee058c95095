package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// WorkerScriptURL is where the background worker script is served from.
const WorkerScriptURL = "/sw.js"

// PushStep identifies the stage of the enrollment pipeline a failure
// happened in. Each step has a different remedy, so the step is part of
// the user-facing message.
type PushStep string

const (
	StepCapability PushStep = "capability"
	StepPermission PushStep = "permission"
	StepWorker     PushStep = "worker"
	StepKeyFetch   PushStep = "key-fetch"
	StepSubscribe  PushStep = "subscribe"
	StepPersist    PushStep = "persist"
)

// PushError wraps a failure of one enrollment step.
type PushError struct {
	Step PushStep
	Err  error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push enrollment failed at %s: %v", e.Step, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

var (
	ErrPushUnsupported  = errors.New("push notifications are not supported here")
	ErrPermissionDenied = errors.New("notification permission was denied")
)

// PushManager performs the one-time push enrollment: permission, worker
// registration, key transport and server-side registration. The pipeline
// is fail-fast and never retries on its own.
type PushManager struct {
	mu       sync.Mutex
	logger   *zap.SugaredLogger
	platform Platform
	api      *API
}

func NewPushManager(logger *zap.SugaredLogger, platform Platform, api *API) *PushManager {
	return &PushManager{
		logger:   logger,
		platform: platform,
		api:      api,
	}
}

// EnablePush runs the enrollment pipeline. Safe to call again after a
// success, the platform returns the existing subscription. Concurrent
// calls are serialized.
func (p *PushManager) EnablePush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.platform.SupportsServiceWorker() || !p.platform.SupportsPushManager() || !p.platform.SupportsNotifications() {
		return &PushError{Step: StepCapability, Err: ErrPushUnsupported}
	}

	permission, err := p.platform.RequestNotificationPermission(ctx)
	if err != nil {
		return &PushError{Step: StepPermission, Err: err}
	}
	if permission != PermissionGranted {
		return &PushError{Step: StepPermission, Err: ErrPermissionDenied}
	}

	pushService, err := p.platform.RegisterWorker(ctx, WorkerScriptURL)
	if err != nil {
		return &PushError{Step: StepWorker, Err: fmt.Errorf("failed to register the background worker: %w", err)}
	}

	publicKey, err := p.api.VAPIDPublicKey(ctx)
	if err != nil {
		return &PushError{Step: StepKeyFetch, Err: fmt.Errorf("failed to fetch the server key: %w", err)}
	}
	if publicKey == "" {
		return &PushError{Step: StepKeyFetch, Err: errors.New("the server returned no key")}
	}

	applicationServerKey, err := DecodeApplicationServerKey(publicKey)
	if err != nil {
		return &PushError{Step: StepKeyFetch, Err: err}
	}

	subscription, err := pushService.Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: applicationServerKey,
	})
	if err != nil {
		return &PushError{Step: StepSubscribe, Err: fmt.Errorf("the push service rejected the subscription: %w", err)}
	}

	if err := p.api.SubscribePush(ctx, *subscription); err != nil {
		return &PushError{Step: StepPersist, Err: fmt.Errorf("the server rejected the subscription: %w", err)}
	}

	p.logger.Infow("Push notifications enabled", "endpoint", subscription.Endpoint)
	return nil
}

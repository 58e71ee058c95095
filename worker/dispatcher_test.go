package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type shownNotification struct {
	title string
	opts  NotificationOptions
}

type fakeWindow struct {
	focused     int
	navigatedTo []string
	noNavigate  bool
}

func (w *fakeWindow) Focus(ctx context.Context) error { w.focused++; return nil }

func (w *fakeWindow) Navigate(ctx context.Context, url string) error {
	if w.noNavigate {
		return ErrNavigateUnsupported
	}
	w.navigatedTo = append(w.navigatedTo, url)
	return nil
}

type fakeWorkerPlatform struct {
	shown   []shownNotification
	windows []WindowClient
	opened  []string
}

func (p *fakeWorkerPlatform) ShowNotification(ctx context.Context, title string, opts NotificationOptions) error {
	p.shown = append(p.shown, shownNotification{title: title, opts: opts})
	return nil
}

func (p *fakeWorkerPlatform) WindowClients(ctx context.Context) ([]WindowClient, error) {
	return p.windows, nil
}

func (p *fakeWorkerPlatform) OpenWindow(ctx context.Context, url string) error {
	p.opened = append(p.opened, url)
	return nil
}

type fakeNotification struct {
	url    string
	closed int
}

func (n *fakeNotification) Close(ctx context.Context) error { n.closed++; return nil }
func (n *fakeNotification) URL() string                     { return n.url }

func newTestDispatcher() (*Dispatcher, *fakeWorkerPlatform) {
	platform := &fakeWorkerPlatform{}
	return NewDispatcher(zap.NewNop().Sugar(), platform), platform
}

func TestHandlePush_JSONPayload(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	payload := []byte(`{"title":"Prompt open","body":"You have 60s","url":"/prompt"}`)
	require.NoError(t, dispatcher.HandlePush(context.Background(), payload))

	require.Len(t, platform.shown, 1)
	assert.Equal(t, "Prompt open", platform.shown[0].title)
	assert.Equal(t, "You have 60s", platform.shown[0].opts.Body)
	assert.Equal(t, "/prompt", platform.shown[0].opts.URL)
}

func TestHandlePush_MissingFieldsGetDefaults(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	require.NoError(t, dispatcher.HandlePush(context.Background(), []byte(`{"body":"hi"}`)))

	require.Len(t, platform.shown, 1)
	assert.Equal(t, DefaultTitle, platform.shown[0].title)
	assert.Equal(t, "hi", platform.shown[0].opts.Body)
	assert.Equal(t, DefaultIcon, platform.shown[0].opts.Icon)
	assert.Equal(t, DefaultBadge, platform.shown[0].opts.Badge)
	assert.Equal(t, DefaultURL, platform.shown[0].opts.URL)
}

func TestHandlePush_MalformedPayloadFallsBackToText(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	require.NoError(t, dispatcher.HandlePush(context.Background(), []byte("hello")))

	require.Len(t, platform.shown, 1)
	assert.Equal(t, DefaultTitle, platform.shown[0].title)
	assert.Equal(t, "hello", platform.shown[0].opts.Body)
	assert.Equal(t, DefaultURL, platform.shown[0].opts.URL)
}

func TestHandleClick_FocusesAndNavigatesExistingWindow(t *testing.T) {
	dispatcher, platform := newTestDispatcher()
	window := &fakeWindow{}
	platform.windows = []WindowClient{window}

	notification := &fakeNotification{url: "/prompt"}
	require.NoError(t, dispatcher.HandleClick(context.Background(), notification))

	assert.Equal(t, 1, notification.closed, "the notification is closed first")
	assert.Equal(t, 1, window.focused)
	assert.Equal(t, []string{"/prompt"}, window.navigatedTo)
	assert.Empty(t, platform.opened, "no new window when one can be reused")
}

func TestHandleClick_OpensWindowWhenNoneExists(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	notification := &fakeNotification{url: "/prompt"}
	require.NoError(t, dispatcher.HandleClick(context.Background(), notification))

	assert.Equal(t, 1, notification.closed)
	assert.Equal(t, []string{"/prompt"}, platform.opened)
}

func TestHandleClick_NavigationUnsupportedStillSucceeds(t *testing.T) {
	dispatcher, platform := newTestDispatcher()
	window := &fakeWindow{noNavigate: true}
	platform.windows = []WindowClient{window}

	notification := &fakeNotification{url: "/prompt"}
	require.NoError(t, dispatcher.HandleClick(context.Background(), notification))

	assert.Equal(t, 1, window.focused, "focus alone is acceptable")
	assert.Empty(t, platform.opened)
}

func TestHandleClick_EmptyURLRoutesToRoot(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	notification := &fakeNotification{}
	require.NoError(t, dispatcher.HandleClick(context.Background(), notification))

	assert.Equal(t, []string{DefaultURL}, platform.opened)
}

func TestPushThenClick_EndToEnd(t *testing.T) {
	dispatcher, platform := newTestDispatcher()

	payload := []byte(`{"title":"Prompt open","body":"You have 60s","url":"/prompt"}`)
	require.NoError(t, dispatcher.HandlePush(context.Background(), payload))
	require.Len(t, platform.shown, 1)

	// The URL stored on the shown notification drives the click routing
	notification := &fakeNotification{url: platform.shown[0].opts.URL}
	require.NoError(t, dispatcher.HandleClick(context.Background(), notification))
	assert.Equal(t, []string{"/prompt"}, platform.opened)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ellysus/Momentary/schema"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError carries the server-provided error text of a non-2xx
// response. The message is surfaced to the user verbatim.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// API is the HTTP transport towards the Momentary server. Session
// credentials live in the cookie jar, so one API value represents one
// browser-like session.
type API struct {
	logger  *zap.SugaredLogger
	baseURL string
	client  *http.Client
}

func NewAPI(logger *zap.SugaredLogger, baseURL string) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &API{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
		},
	}, nil
}

func (a *API) Me(ctx context.Context) (*schema.Identity, error) {
	identity := &schema.Identity{}
	if err := a.doJSON(ctx, http.MethodGet, "/me", nil, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (a *API) PromptStatus(ctx context.Context) (*schema.PromptStatus, error) {
	status := &schema.PromptStatus{}
	if err := a.doJSON(ctx, http.MethodGet, "/prompt/status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (a *API) Register(ctx context.Context, username, password string) (*schema.Identity, error) {
	return a.credentialsCall(ctx, "/auth/register", username, password)
}

func (a *API) Login(ctx context.Context, username, password string) (*schema.Identity, error) {
	return a.credentialsCall(ctx, "/auth/login", username, password)
}

func (a *API) Logout(ctx context.Context) error {
	return a.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (a *API) VAPIDPublicKey(ctx context.Context) (string, error) {
	response := &schema.PublicKeyResponse{}
	if err := a.doJSON(ctx, http.MethodGet, "/push/vapid-public-key", nil, response); err != nil {
		return "", err
	}
	return response.PublicKey, nil
}

func (a *API) SubscribePush(ctx context.Context, subscription schema.CreatePushSubscriptionRequest) error {
	return a.doJSON(ctx, http.MethodPost, "/push/subscribe", subscription, nil)
}

func (a *API) TriggerPrompt(ctx context.Context) error {
	return a.doJSON(ctx, http.MethodPost, "/admin/prompt/now", nil, nil)
}

func (a *API) UploadPhoto(ctx context.Context, filename string, photo io.Reader) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/photos/upload", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (a *API) ListPhotos(ctx context.Context) (*schema.ListPhotosResponse, error) {
	response := &schema.ListPhotosResponse{}
	if err := a.doJSON(ctx, http.MethodGet, "/photos", nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (a *API) credentialsCall(ctx context.Context, path, username, password string) (*schema.Identity, error) {
	identity := &schema.Identity{}
	request := schema.CredentialsRequest{Username: username, Password: password}
	if err := a.doJSON(ctx, http.MethodPost, path, request, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (a *API) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("malformed response body: %w", err)
		}
	}
	return nil
}

// checkStatus turns a non-2xx response into a StatusError carrying the
// text body, or a generic fallback when the body is empty.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: message}
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the external identity service. Sign-in and sign-up are
// proxied; bearer validation happens locally against the shared JWT secret
// and never round-trips here.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// User is the identity service's view of an account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a successful sign-in or sign-up result.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// NewClient builds an identity client.
func NewClient(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: httpClient,
	}
}

// SignIn exchanges email+password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.postAuth(ctx, "/auth/v1/token?grant_type=password", email, password)
}

// SignUp registers a new account and returns its session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.postAuth(ctx, "/auth/v1/signup", email, password)
}

func (c *Client) postAuth(ctx context.Context, path, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.text() != "" {
			return nil, fmt.Errorf("identity: %s", apiErr.text())
		}
		return nil, fmt.Errorf("identity: unexpected status %s", resp.Status)
	}
	var sess sessionResponse
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("identity: decode response: %w", err)
	}
	return &Session{
		User:         sess.User,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    sess.ExpiresIn,
	}, nil
}

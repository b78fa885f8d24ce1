// Package slackapi is the outbound Slack surface: a thin Web API client
// for the handful of methods the dashboard relay needs, plus request
// signature verification for the inbound events endpoint.
package slackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/logger"
)

// maxResponseBody caps Slack API response bodies.
const maxResponseBody = 1 << 20

// Client calls the Slack Web API. Bot tokens are per tenant, so every
// method takes the token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	clientID     string
	clientSecret string
	redirectURL  string
}

// NewClient creates a Slack Web API client from the app config.
func NewClient(cfg *config.SlackConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       log,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

// apiError is a Slack Web API level failure (ok=false).
type apiError struct {
	method string
	code   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.method, e.code)
}

// ChatPostMessageRequest posts a message, optionally into a thread.
type ChatPostMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTs string `json:"thread_ts,omitempty"`
}

// ChatPostMessageResponse is the subset of chat.postMessage we consume.
type ChatPostMessageResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel string `json:"channel,omitempty"`
	Ts      string `json:"ts,omitempty"`
}

// PostMessage sends a message via chat.postMessage.
func (c *Client) PostMessage(ctx context.Context, token string, req ChatPostMessageRequest) (*ChatPostMessageResponse, error) {
	var resp ChatPostMessageResponse
	if err := c.postJSON(ctx, "chat.postMessage", token, req, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &apiError{method: "chat.postMessage", code: resp.Error}
	}
	return &resp, nil
}

// UserInfo is the subset of a users.info member we consume.
type UserInfo struct {
	ID       string `json:"id"`
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	IsBot    bool   `json:"is_bot"`
	IsAdmin  bool   `json:"is_admin"`
	Deleted  bool   `json:"deleted"`
	TZ       string `json:"tz"`
	Profile  struct {
		DisplayName string `json:"display_name"`
		RealName    string `json:"real_name"`
		Email       string `json:"email"`
		Title       string `json:"title"`
		Image192    string `json:"image_192"`
	} `json:"profile"`
}

// DisplayNameOrReal prefers the display name, falling back to the real name.
func (u *UserInfo) DisplayNameOrReal() string {
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	if u.Profile.RealName != "" {
		return u.Profile.RealName
	}
	return u.RealName
}

type userInfoResponse struct {
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
	User  *UserInfo `json:"user,omitempty"`
}

// GetUserInfo fetches a workspace member's profile via users.info.
func (c *Client) GetUserInfo(ctx context.Context, token, userID string) (*UserInfo, error) {
	endpoint := fmt.Sprintf("%s/users.info?user=%s", c.baseURL, url.QueryEscape(userID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	var resp userInfoResponse
	if err := c.do(httpReq, "users.info", &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &apiError{method: "users.info", code: resp.Error}
	}
	return resp.User, nil
}

// OAuthAccessResponse is the subset of oauth.v2.access we consume.
type OAuthAccessResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	BotUserID   string `json:"bot_user_id"`
	Team        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

// Scopes splits the comma-separated scope string.
func (r *OAuthAccessResponse) Scopes() []string {
	if r.Scope == "" {
		return nil
	}
	return strings.Split(r.Scope, ",")
}

// ExchangeOAuthCode trades an OAuth install code for a bot token via
// oauth.v2.access.
func (c *Client) ExchangeOAuthCode(ctx context.Context, code string) (*OAuthAccessResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	if c.redirectURL != "" {
		form.Set("redirect_uri", c.redirectURL)
	}

	endpoint := c.baseURL + "/oauth.v2.access"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp OAuthAccessResponse
	if err := c.do(httpReq, "oauth.v2.access", &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &apiError{method: "oauth.v2.access", code: resp.Error}
	}
	return &resp, nil
}

// postJSON issues a JSON-bodied Web API call with a bot token.
func (c *Client) postJSON(ctx context.Context, method, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	endpoint := c.baseURL + "/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	return c.do(httpReq, method, out)
}

// do executes the request and decodes the response envelope.
func (c *Client) do(req *http.Request, method string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SlackAPICallDuration.WithLabelValues(method, "transport_error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("slack %s request failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.SlackAPICallDuration.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack %s returned status %d: %s", method, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

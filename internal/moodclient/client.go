// Package moodclient は気分APIのHTTPクライアントを提供する。
// セッションCookieとCSRFトークンを保持し、プロフィール操作に必要なAPIを呼び出す。
package moodclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/profile"
)

const (
	// csrfHeaderName はCSRFトークンを送るヘッダー名。
	csrfHeaderName = "X-CSRF-Token"
	// sessionCookieName はサーバーが発行するセッションCookieの名前。
	sessionCookieName = "session_id"
	// maxResponseSize はレスポンスボディの最大サイズ。
	maxResponseSize = 5 << 20
	userAgent       = "moodctl/1.0"
)

// StatusError はAPIが成功以外のステータスを返したことを表す。
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api returned status %d: [%s] %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

// Client は気分APIのクライアント。
type Client struct {
	jar        http.CookieJar
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL

	mu        sync.Mutex
	csrfToken string
}

var _ profile.MoodAPI = (*Client)(nil)

// New はClientを生成する。Cookieはpublic suffixを考慮したjarで保持する。
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme: %q", u.Scheme)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		jar:        jar,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		logger:     logger,
		baseURL:    u,
	}, nil
}

// moodJSON はAPIの気分投稿表現。
type moodJSON struct {
	ID        int64    `json:"id"`
	Emoji     string   `json:"emoji"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Register は電話番号でユーザー登録する。
// パスワードを省略した場合はサーバーが生成したパスワードを返す。
func (c *Client) Register(ctx context.Context, phone, password string) (string, error) {
	body := map[string]string{"phone_number": phone}
	if password != "" {
		body["password"] = password
	}

	var resp struct {
		GeneratedPassword string `json:"generated_password"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.GeneratedPassword, nil
}

// Login は電話番号とパスワードでログインし、セッションCookieを保持する。
func (c *Client) Login(ctx context.Context, phone, password string) error {
	body := map[string]string{"phone_number": phone, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, body, nil)
}

// Logout はセッションを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// SessionID は保持しているセッションIDを返す。未ログインの場合は空文字。
func (c *Client) SessionID() string {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == sessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

// SetSessionID は保存済みのセッションIDをCookieとして復元する。
func (c *Client) SetSessionID(id string) {
	if id == "" {
		return
	}
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  sessionCookieName,
		Value: id,
		Path:  "/",
	}})
}

// CreateMood は気分を投稿する。
func (c *Client) CreateMood(ctx context.Context, emoji, text string, lat, lon float64) (*model.Mood, error) {
	body := map[string]any{
		"emoji":     emoji,
		"text":      text,
		"latitude":  lat,
		"longitude": lon,
	}
	var resp moodJSON
	if err := c.doJSON(ctx, http.MethodPost, "/api/moods", nil, body, &resp); err != nil {
		return nil, err
	}
	m := resp.toModel()
	return &m, nil
}

// ListUserMoods は現在のユーザーの投稿を取得する。hoursがnilの場合は全履歴を取得する。
func (c *Client) ListUserMoods(ctx context.Context, hours *float64) ([]model.Mood, error) {
	q := url.Values{}
	if hours != nil {
		q.Set("hours", strconv.FormatFloat(*hours, 'f', -1, 64))
	}

	var resp []moodJSON
	if err := c.doJSON(ctx, http.MethodGet, "/api/user-moods", q, nil, &resp); err != nil {
		return nil, err
	}

	moods := make([]model.Mood, len(resp))
	for i, m := range resp {
		moods[i] = m.toModel()
	}
	return moods, nil
}

// DeleteMood は投稿を削除する。
func (c *Client) DeleteMood(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/moods/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (m moodJSON) toModel() model.Mood {
	return model.Mood{
		ID:        m.ID,
		Emoji:     m.Emoji,
		Text:      m.Text,
		Timestamp: m.Timestamp,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}
}

// ensureCSRFToken はCSRFトークンを未取得の場合に取得する。
func (c *Client) ensureCSRFToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.csrfToken
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/csrf-token", nil, nil, "", &resp); err != nil {
		return "", fmt.Errorf("failed to fetch csrf token: %w", err)
	}

	c.mu.Lock()
	c.csrfToken = resp.Token
	c.mu.Unlock()
	return resp.Token, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token := ""
	if method != http.MethodGet {
		var err error
		token, err = c.ensureCSRFToken(ctx)
		if err != nil {
			return err
		}
	}
	return c.do(ctx, method, path, query, body, token, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, csrfToken string, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrfToken != "" {
		req.Header.Set(csrfHeaderName, csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("mood api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr errorJSON
		if json.Unmarshal(data, &apiErr) == nil {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		return statusErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

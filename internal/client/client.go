// Package client はAPIのクライアントとログインセッションの保持を提供する。
// 発行されたトークンをすべてのリクエストにBearerとして付与し、
// 401/403を受け取った時点でセッションを破棄して再ログインを要求する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/hitoshi/studentms/internal/model"
)

const (
	adminSecretHeader = "X-Admin-Secret"
	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 4 << 20
)

// Client はAPIのクライアント。ゴルーチンから並行に利用できる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string

	mu      sync.RWMutex
	session *Session
}

// New はClientの新しいインスタンスを生成する。
// httpClient, loggerがnilの場合はそれぞれhttp.DefaultClient, slog.Default()を使う。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Register はアカウントを登録し、セッションを確立する。
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var headers http.Header
	if input.AdminSecret != "" {
		headers = http.Header{adminSecretHeader: []string{input.AdminSecret}}
	}

	var resp authResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/register", "", headers, input, &resp); err != nil {
		return nil, err
	}
	return c.establish(resp), nil
}

// Login はメールアドレスとパスワードでログインし、セッションを確立する。
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", "", nil, body, &resp); err != nil {
		return nil, err
	}
	return c.establish(resp), nil
}

// Me はログイン中のユーザー情報を取得する。
// サーバー側でロールが変更されていた場合はセッションのロールも更新する。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	token, err := c.authorized(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	if err != nil {
		return nil, err
	}
	c.updateRole(token, u.Role)
	return &u, nil
}

// UpdateProfile は本人のプロフィールを更新する。
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var u User
	if _, err := c.authorized(ctx, http.MethodPut, "/api/users/me", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangeRole は指定ユーザーのロールを変更する（管理者のみ）。
func (c *Client) ChangeRole(ctx context.Context, userID string, role model.Role) (*User, error) {
	var resp roleChangeResponse
	path := "/api/users/" + url.PathEscape(userID) + "/role"
	if _, err := c.authorized(ctx, http.MethodPatch, path, map[string]model.Role{"role": role}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListStudents は学生一覧を取得する（管理者のみ）。
func (c *Client) ListStudents(ctx context.Context, query StudentQuery) (*StudentList, error) {
	q := url.Values{}
	if query.Course != "" {
		q.Set("course", query.Course)
	}
	if query.Status != "" {
		q.Set("status", string(query.Status))
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	path := "/api/students"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list StudentList
	if _, err := c.authorized(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetStudent は学生の詳細を取得する（管理者のみ）。
func (c *Client) GetStudent(ctx context.Context, id string) (*Student, error) {
	var s Student
	if _, err := c.authorized(ctx, http.MethodGet, studentPath(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStudent は学生を登録する（管理者のみ）。
func (c *Client) CreateStudent(ctx context.Context, input StudentInput) (*Student, error) {
	var s Student
	if _, err := c.authorized(ctx, http.MethodPost, "/api/students", input, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStudent は学生情報を部分更新する（管理者のみ）。
func (c *Client) UpdateStudent(ctx context.Context, id string, update StudentUpdate) (*Student, error) {
	var s Student
	if _, err := c.authorized(ctx, http.MethodPut, studentPath(id), update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStudent は学生を削除する（管理者のみ）。
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	_, err := c.authorized(ctx, http.MethodDelete, studentPath(id), nil, nil)
	return err
}

// Health はサーバーの死活を確認する。認証は不要。
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.send(ctx, http.MethodGet, "/health", "", nil, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

func studentPath(id string) string {
	return "/api/students/" + url.PathEscape(id)
}

func (c *Client) establish(resp authResponse) *User {
	c.setSession(&Session{
		Token:  resp.Token,
		UserID: resp.User.ID,
		Role:   resp.User.Role,
	})
	u := resp.User
	return &u
}

// authorized は現在のセッションのトークンを付与してリクエストを送信する。
// セッションがない場合は通信せずにErrNotAuthenticatedを返す。
// 401/403の場合はセッションを破棄し、ErrReauthenticateでラップしたエラーを返す。
func (c *Client) authorized(ctx context.Context, method, path string, body, out any) (string, error) {
	s, ok := c.Session()
	if !ok {
		return "", ErrNotAuthenticated
	}

	err := c.send(ctx, method, path, s.Token, nil, body, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		c.invalidate(s.Token)
		c.logger.Warn("session invalidated",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", apiErr.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return "", fmt.Errorf("%w: %w", ErrReauthenticate, apiErr)
	}
	return s.Token, err
}

// send はJSONリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// 2xx以外は*APIErrorを返す。
func (c *Client) send(ctx context.Context, method, path, token string, headers http.Header, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

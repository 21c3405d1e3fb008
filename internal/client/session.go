package client

import (
	"errors"

	"github.com/hitoshi/studentms/internal/model"
)

var (
	// ErrNotAuthenticated はセッションがない状態で認証が必要な操作を呼んだ場合に返す。
	// リクエストは送信されない。
	ErrNotAuthenticated = errors.New("client: not authenticated")
	// ErrReauthenticate はサーバーが401/403を返しセッションを破棄した場合に返す。
	// 呼び出し元はログイン画面へ誘導する。自動での再試行は行わない。
	ErrReauthenticate = errors.New("client: session is no longer valid, log in again")
	// ErrForbiddenView は管理者専用の画面に管理者以外がアクセスしようとした場合に返す。
	ErrForbiddenView = errors.New("client: view requires admin role")
)

// Session はクライアントが保持するトークンと最小限の本人情報。
type Session struct {
	Token  string     `json:"token"`
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
}

// View は画面の識別子。
type View string

const (
	ViewDashboard     View = "dashboard"
	ViewProfile       View = "profile"
	ViewStudents      View = "students"
	ViewStudentDetail View = "student-detail"
	ViewStudentForm   View = "student-form"
)

var adminOnlyViews = map[View]bool{
	ViewStudents:      true,
	ViewStudentDetail: true,
	ViewStudentForm:   true,
}

// AdminOnly は管理者専用の画面かどうかを返す。
func (v View) AdminOnly() bool {
	return adminOnlyViews[v]
}

// Session は現在のセッションのコピーを返す。
func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Restore は永続化されていたセッションを復元する。
func (c *Client) Restore(s Session) {
	if s.Token == "" {
		return
	}
	c.setSession(&s)
}

// Logout はセッションを破棄する。トークンはサーバー側で失効しないため通信は行わない。
func (c *Client) Logout() {
	c.setSession(nil)
}

// IsAuthenticated はセッションを保持しているかどうかを返す。
func (c *Client) IsAuthenticated() bool {
	_, ok := c.Session()
	return ok
}

// Role は現在のセッションのロールを返す。未ログインの場合は空文字列。
func (c *Client) Role() model.Role {
	s, _ := c.Session()
	return s.Role
}

// IsAdmin は現在のセッションが管理者かどうかを返す。
func (c *Client) IsAdmin() bool {
	return c.Role() == model.RoleAdmin
}

// Guard は画面を表示してよいかを判定する。
// 未ログインはErrNotAuthenticated、管理者専用画面への非管理者はErrForbiddenViewを返す。
func (c *Client) Guard(v View) error {
	s, ok := c.Session()
	if !ok {
		return ErrNotAuthenticated
	}
	if v.AdminOnly() && s.Role != model.RoleAdmin {
		return ErrForbiddenView
	}
	return nil
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// invalidate は指定トークンが現在のセッションのものであれば破棄する。
// 並行して新しいセッションが確立されていた場合は残す。
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Token == token {
		c.session = nil
	}
}

func (c *Client) updateRole(token string, role model.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Token == token && role.Valid() {
		c.session.Role = role
	}
}

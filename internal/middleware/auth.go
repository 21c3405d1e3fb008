// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/studentms/internal/auth"
	"github.com/hitoshi/studentms/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// 認証拒否の理由（メトリクスのラベルに使用）
const (
	RejectMissingToken = "missing_token"
	RejectInvalidToken = "invalid_token"
	RejectExpiredToken = "expired_token"
	RejectUserGone     = "user_gone"
	RejectForbidden    = "forbidden"
	RejectStoreError   = "store_error"
)

// TokenVerifier はトークン検証のインターフェース。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder は検証済みsubjectからユーザーを取得するインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RejectionRecorder は認証拒否を記録するインターフェース。
type RejectionRecorder interface {
	RecordAuthRejection(reason string)
}

// Authenticator はBearerトークンによる認証とロールによる認可を行う。
//
// リクエストごとの状態遷移:
//
//	Unauthenticated → Authenticated → Authorized（または途中でRejected）
//
// 拒否時はハンドラーを呼び出さずに即座にレスポンスを返す。リトライは行わない。
type Authenticator struct {
	verifier TokenVerifier
	users    UserFinder
	recorder RejectionRecorder
}

// NewAuthenticator はAuthenticatorを生成する。recorderはnilでもよい。
func NewAuthenticator(verifier TokenVerifier, users UserFinder, recorder RejectionRecorder) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
		recorder: recorder,
	}
}

// Middleware はBearerトークンを検証し、最新のユーザーレコードをコンテキストに注入する
// ミドルウェアを返す。ロールはトークンではなくストアから毎回取得する。
func (a *Authenticator) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取り出す
			token, ok := bearerToken(r)
			if !ok {
				a.reject(w, RejectMissingToken, model.NewNotAuthenticatedError())
				return
			}

			// 2. 署名と有効期限を検証
			userID, err := a.verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					slog.Warn("token rejected", slog.String("kind", "expired"))
					a.reject(w, RejectExpiredToken, model.NewExpiredTokenError())
					return
				}
				slog.Warn("token rejected", slog.String("kind", "invalid"))
				a.reject(w, RejectInvalidToken, model.NewInvalidTokenError())
				return
			}

			// 3. subjectのユーザーを取得（削除済みアカウントの有効なトークンを弾く）
			user, err := a.users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to load authenticated user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				a.record(RejectStoreError)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				a.reject(w, RejectUserGone, model.NewUserGoneError())
				return
			}

			// 4. コンテキストに注入
			setLoggedUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireRole は認証済みユーザーのロールが指定ロールのいずれかに一致する場合のみ
// 通過させるミドルウェアを返す。Middlewareの後に配置する。
func (a *Authenticator) RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				a.reject(w, RejectMissingToken, model.NewNotAuthenticatedError())
				return
			}
			if !user.HasRole(roles...) {
				slog.Warn("role check failed",
					slog.String("user_id", user.ID),
					slog.String("role", string(user.Role)),
				)
				a.reject(w, RejectForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) reject(w http.ResponseWriter, reason string, apiErr *model.APIError) {
	a.record(reason)
	if apiErr.Code != model.ErrCodeForbidden {
		w.Header().Set("WWW-Authenticate", `Bearer realm="studentms"`)
	}
	WriteAPIError(w, apiErr)
}

func (a *Authenticator) record(reason string) {
	if a.recorder != nil {
		a.recorder.RecordAuthRejection(reason)
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名は大文字小文字を区別しない。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Package auth はトークンの発行・検証、パスワードハッシュ、登録・ログインフローを提供する。
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/hitoshi/studentms/internal/model"
)

// CredentialStore は認証フローが利用する資格情報ストアのインターフェース。
type CredentialStore interface {
	Create(ctx context.Context, input model.NewUser) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	VerifyPassword(user *model.User, candidate string) bool
}

// TokenIssuer はトークン発行のインターフェース。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// RegisterInput は登録リクエストの入力を表す。
type RegisterInput struct {
	FullName    string
	Email       string
	Phone       string
	Password    string
	Course      string
	Role        model.Role
	AdminSecret string
}

// Result は登録・ログイン成功時の結果を表す。
type Result struct {
	Token string
	User  *model.User
}

// Service は登録・ログインのビジネスロジックを提供する。
type Service struct {
	store       CredentialStore
	tokens      TokenIssuer
	adminSecret string
}

// NewService はServiceを生成する。
// adminSecretが空の場合、adminロールでの自己登録は常に拒否される。
func NewService(store CredentialStore, tokens TokenIssuer, adminSecret string) *Service {
	return &Service{
		store:       store,
		tokens:      tokens,
		adminSecret: adminSecret,
	}
}

// Register はユーザーを登録し、トークンを発行する。
// role=adminは正しい管理者シークレットが提示された場合のみ許可する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	role := input.Role
	if role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, model.NewValidationError("role must be admin or student")
	}
	if role == model.RoleAdmin && !s.adminSecretMatches(input.AdminSecret) {
		slog.Warn("admin registration rejected", slog.String("reason", "admin_secret_mismatch"))
		return nil, model.NewAdminSecretError()
	}

	user, err := s.store.Create(ctx, model.NewUser{
		Email:    input.Email,
		Password: input.Password,
		Role:     role,
		FullName: input.FullName,
		Phone:    input.Phone,
		Course:   input.Course,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return &Result{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// メールアドレス・パスワードのどちらが誤っていても同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.store.VerifyPassword(user, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &Result{Token: token, User: user}, nil
}

// adminSecretMatches は提示されたシークレットが設定値と一致するかを定数時間で比較する。
func (s *Service) adminSecretMatches(provided string) bool {
	if s.adminSecret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.adminSecret), []byte(provided)) == 1
}

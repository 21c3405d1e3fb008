package handler

import (
	"context"
	"errors"

	"github.com/hitoshi/studentms/internal/auth"
	"github.com/hitoshi/studentms/internal/model"
)

// AuthRecorder は登録・ログインの結果を記録するインターフェース。
type AuthRecorder interface {
	RecordLogin(success bool)
	RecordRegistration(role string)
}

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
// 登録・ログインの結果をメトリクスに記録する。
type AuthServiceAdapter struct {
	svc      *auth.Service
	recorder AuthRecorder
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service, recorder AuthRecorder) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc, recorder: recorder}
}

// Register はユーザーを登録し、成功時にロール別の登録数を記録する。
func (a *AuthServiceAdapter) Register(ctx context.Context, input auth.RegisterInput) (*auth.Result, error) {
	result, err := a.svc.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	if a.recorder != nil {
		a.recorder.RecordRegistration(string(result.User.Role))
	}
	return result, nil
}

// Login はログインし、成否を記録する。
// 内部エラーは認証の成否ではないため記録しない。
func (a *AuthServiceAdapter) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	result, err := a.svc.Login(ctx, email, password)
	if a.recorder != nil {
		var apiErr *model.APIError
		switch {
		case err == nil:
			a.recorder.RecordLogin(true)
		case errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials:
			a.recorder.RecordLogin(false)
		}
	}
	return result, err
}

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, student, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeUserGone           = "USER_GONE"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeAdminSecret        = "ADMIN_SECRET_INVALID"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeStudentNotFound    = "STUDENT_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError はリクエスト内容の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
// 大文字小文字を区別せずに既存アカウントと一致した場合に返す。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already in use",
		Category: "validation",
		Action:   "Sign in with the existing account or use another email address.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// アカウント列挙を防ぐため、メールアドレス・パスワードどちらの誤りでも同じ内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewNotAuthenticatedError は認証情報が無い・不正な形式の場合のエラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "not authenticated",
		Category: "auth",
		Action:   "Sign in and retry with a bearer token.",
	}
}

// NewInvalidTokenError は署名や構造が不正なトークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "invalid token",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewExpiredTokenError は有効期限切れトークンのエラーを生成する。
func NewExpiredTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "token expired",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewUserGoneError は有効なトークンに対応するユーザーが削除済みの場合のエラーを生成する。
func NewUserGoneError() *APIError {
	return &APIError{
		Code:     ErrCodeUserGone,
		Message:  "user no longer exists",
		Category: "auth",
		Action:   "Sign in with another account.",
	}
}

// NewForbiddenError はロール不足のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "forbidden",
		Category: "auth",
		Action:   "This operation requires a different role.",
	}
}

// NewSelfRoleChangeError は管理者が自分自身のロールを変更しようとした場合のエラーを生成する。
func NewSelfRoleChangeError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Cannot change your own role",
		Category: "auth",
		Action:   "Ask another administrator to change your role.",
	}
}

// NewAdminSecretError は管理者シークレットが一致しない場合のエラーを生成する。
func NewAdminSecretError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminSecret,
		Message:  "Unauthorized to create admin",
		Category: "auth",
		Action:   "Provide the correct X-Admin-Secret header or register as a student.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Check the user ID.",
	}
}

// NewStudentNotFoundError は学生エントリが見つからない場合のエラーを生成する。
func NewStudentNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeStudentNotFound,
		Message:  "Student not found",
		Category: "student",
		Action:   "Check the student ID.",
	}
}

// NewRouteNotFoundError は未定義ルートへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("Not found - %s", path),
		Category: "system",
		Action:   "Check the request URL.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Please try again later.",
	}
}

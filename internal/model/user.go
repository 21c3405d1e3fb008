// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はユーザーの権限ロールを表す。
// ユーザーは常にちょうど1つのロールを持つ。
type Role string

const (
	// RoleAdmin は学生管理を行う管理者ロール。
	RoleAdmin Role = "admin"
	// RoleStudent は登録時のデフォルトロール。
	RoleStudent Role = "student"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User はサービス利用ユーザーを表す。
// PasswordHashは平文パスワードを保持しない（bcryptハッシュのみ）。
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           Role
	FullName       string
	Phone          string
	Course         string
	ProfilePicture string
	EnrollmentYear *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasRole はユーザーのロールが指定されたロールのいずれかに一致するかを返す。
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// NewUser はユーザー作成時の入力を表す。
// Passwordは平文で受け取り、Credential Storeが書き込み前にハッシュ化する。
type NewUser struct {
	Email          string
	Password       string
	Role           Role
	FullName       string
	Phone          string
	Course         string
	ProfilePicture string
	EnrollmentYear *int
}

// UserUpdate はユーザーの部分更新を表す。
// nilのフィールドは「変更なし」を意味し、既存の値を維持する。
type UserUpdate struct {
	FullName       *string
	Phone          *string
	Course         *string
	ProfilePicture *string
	EnrollmentYear *int
	Role           *Role
	Password       *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Phone == nil && u.Course == nil &&
		u.ProfilePicture == nil && u.EnrollmentYear == nil &&
		u.Role == nil && u.Password == nil
}

// NormalizeEmail はメールアドレスを比較・保存用に正規化する。
// 大文字小文字を区別しない一意性のため、前後の空白を除去して小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

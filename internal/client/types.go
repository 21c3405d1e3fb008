package client

import (
	"fmt"
	"time"

	"github.com/hitoshi/studentms/internal/model"
)

// User はAPIが返すユーザー情報。
type User struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	Email          string     `json:"email"`
	Role           model.Role `json:"role"`
	Phone          string     `json:"phone,omitempty"`
	Course         string     `json:"course,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	EnrollmentYear *int       `json:"enrollmentYear,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Student はAPIが返す学生名簿エントリ。
type Student struct {
	ID             string              `json:"id"`
	UserID         *string             `json:"userId"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Course         string              `json:"course"`
	EnrollmentYear *int                `json:"enrollmentYear"`
	Status         model.StudentStatus `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// ListMeta は一覧のページング情報。
type ListMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// StudentList は学生一覧の1ページ分。
type StudentList struct {
	Data []Student `json:"data"`
	Meta ListMeta  `json:"meta"`
}

// RegisterInput は登録リクエスト。AdminSecretはヘッダーで送信する。
type RegisterInput struct {
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Password    string     `json:"password"`
	Course      string     `json:"course,omitempty"`
	Role        model.Role `json:"role,omitempty"`
	AdminSecret string     `json:"-"`
}

// ProfileUpdate は本人のプロフィール更新。nilのフィールドは送信しない。
type ProfileUpdate struct {
	FullName       *string `json:"fullName,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Course         *string `json:"course,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	EnrollmentYear *int    `json:"enrollmentYear,omitempty"`
}

// StudentInput は学生作成リクエスト。
type StudentInput struct {
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Course         string              `json:"course,omitempty"`
	EnrollmentYear *int                `json:"enrollmentYear,omitempty"`
	Status         model.StudentStatus `json:"status,omitempty"`
}

// StudentUpdate は学生の部分更新リクエスト。nilのフィールドは送信しない。
type StudentUpdate struct {
	Name           *string              `json:"name,omitempty"`
	Email          *string              `json:"email,omitempty"`
	Course         *string              `json:"course,omitempty"`
	EnrollmentYear *int                 `json:"enrollmentYear,omitempty"`
	Status         *model.StudentStatus `json:"status,omitempty"`
}

// StudentQuery は学生一覧の絞り込み条件。ゼロ値の項目はサーバーの既定値を使う。
type StudentQuery struct {
	Course string
	Status model.StudentStatus
	Page   int
	Limit  int
}

// APIError はサーバーが返したエラーレスポンス。
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type roleChangeResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

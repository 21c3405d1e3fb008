package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/model"
)

// writeJSON はステータスコードとともにJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// messageResponse は処理結果のメッセージのみを返すレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// authUserResponse は登録・ログイン時に返すユーザー情報。
type authUserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// authResponse は登録・ログインのレスポンス。
type authResponse struct {
	Token string           `json:"token"`
	User  authUserResponse `json:"user"`
}

// userResponse はユーザーの公開プロフィール。パスワードハッシュは含まない。
type userResponse struct {
	ID             string    `json:"id"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Phone          string    `json:"phone,omitempty"`
	Course         string    `json:"course,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	EnrollmentYear *int      `json:"enrollmentYear,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// roleUserResponse はロール変更後に返すユーザー情報。
type roleUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type roleChangeResponse struct {
	Message string           `json:"message"`
	User    roleUserResponse `json:"user"`
}

// studentResponse は学生名簿エントリのAPIレスポンス。
type studentResponse struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"userId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Course         string    `json:"course"`
	EnrollmentYear *int      `json:"enrollmentYear"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// listMeta は一覧レスポンスのページング情報。
type listMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// studentListResponse は学生一覧のレスポンス。
type studentListResponse struct {
	Data []studentResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

func toAuthResponse(token string, u *model.User) authResponse {
	return authResponse{
		Token: token,
		User: authUserResponse{
			ID:       u.ID,
			FullName: u.FullName,
			Email:    u.Email,
			Role:     string(u.Role),
		},
	}
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           string(u.Role),
		Phone:          u.Phone,
		Course:         u.Course,
		ProfilePicture: u.ProfilePicture,
		EnrollmentYear: u.EnrollmentYear,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func toStudentResponse(s *model.Student) studentResponse {
	return studentResponse{
		ID:             s.ID,
		UserID:         s.UserID,
		Name:           s.Name,
		Email:          s.Email,
		Course:         s.Course,
		EnrollmentYear: s.EnrollmentYear,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toStudentListResponse(page *model.StudentPage) studentListResponse {
	data := make([]studentResponse, len(page.Students))
	for i, s := range page.Students {
		data[i] = toStudentResponse(s)
	}
	return studentListResponse{
		Data: data,
		Meta: listMeta{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages(),
		},
	}
}

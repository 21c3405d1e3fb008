package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile は本人のプロフィールを更新する。ロール・メールアドレス・パスワードは変更しない。
	UpdateProfile(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error)
	// ChangeRole は管理者が他ユーザーのロールを変更する。
	ChangeRole(ctx context.Context, actor *model.User, targetID string, role model.Role) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// role、email、passwordは定義しないため、含まれている場合はデコード時に拒否される。
type updateProfileRequest struct {
	FullName       *string `json:"fullName" validate:"omitempty,max=255"`
	Phone          *string `json:"phone" validate:"omitempty,max=64"`
	Course         *string `json:"course" validate:"omitempty,max=255"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,max=2048"`
	EnrollmentYear *int    `json:"enrollmentYear" validate:"omitempty,min=1900,max=2100"`
}

// changeRoleRequest はロール変更リクエストのボディ。
type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin student"`
}

// UpdateMe は本人のプロフィールを更新する。
// PUT /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, model.NewNotAuthenticatedError())
		return
	}

	var req updateProfileRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), caller.ID, user.ProfileInput{
		FullName:       req.FullName,
		Phone:          req.Phone,
		Course:         req.Course,
		ProfilePicture: req.ProfilePicture,
		EnrollmentYear: req.EnrollmentYear,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// ChangeRole は指定ユーザーのロールを変更する。
// PATCH /api/users/:id/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, model.NewNotAuthenticatedError())
		return
	}

	var req changeRoleRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	updated, err := h.service.ChangeRole(r.Context(), caller, chi.URLParam(r, "id"), model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roleChangeResponse{
		Message: "Role updated",
		User: roleUserResponse{
			ID:    updated.ID,
			Email: updated.Email,
			Role:  string(updated.Role),
		},
	})
}

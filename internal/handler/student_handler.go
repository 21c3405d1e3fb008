package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/student"
)

// StudentServiceInterface は学生管理ハンドラーが必要とするサービスインターフェース。
type StudentServiceInterface interface {
	Create(ctx context.Context, input student.CreateInput) (*model.Student, error)
	Get(ctx context.Context, id string) (*model.Student, error)
	List(ctx context.Context, filter model.StudentFilter) (*model.StudentPage, error)
	Update(ctx context.Context, id string, update model.StudentUpdate) (*model.Student, error)
	Delete(ctx context.Context, id string) error
}

// StudentHandler は学生名簿のHTTPハンドラー。すべて管理者専用。
type StudentHandler struct {
	service StudentServiceInterface
}

// NewStudentHandler はStudentHandlerを生成する。
func NewStudentHandler(service StudentServiceInterface) *StudentHandler {
	return &StudentHandler{service: service}
}

type createStudentRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Course         string `json:"course" validate:"omitempty,max=255"`
	EnrollmentYear *int   `json:"enrollmentYear" validate:"omitempty,min=1900,max=2100"`
	Status         string `json:"status" validate:"omitempty,oneof=Active Graduated Dropped"`
}

type updateStudentRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=255"`
	Email          *string `json:"email" validate:"omitempty,email,max=255"`
	Course         *string `json:"course" validate:"omitempty,max=255"`
	EnrollmentYear *int    `json:"enrollmentYear" validate:"omitempty,min=1900,max=2100"`
	Status         *string `json:"status" validate:"omitempty,oneof=Active Graduated Dropped"`
}

// Create は学生を登録する。
// POST /api/students
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	st, err := h.service.Create(r.Context(), student.CreateInput{
		Name:           req.Name,
		Email:          req.Email,
		Course:         req.Course,
		EnrollmentYear: req.EnrollmentYear,
		Status:         model.StudentStatus(req.Status),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(st))
}

// List は学生一覧を返す。
// GET /api/students?course=&status=&page=&limit=
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, apiErr := parsePositiveInt(q.Get("page"), "page")
	if apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	limit, apiErr := parsePositiveInt(q.Get("limit"), "limit")
	if apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	result, err := h.service.List(r.Context(), model.StudentFilter{
		Course: q.Get("course"),
		Status: model.StudentStatus(q.Get("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentListResponse(result))
}

// Get は学生の詳細を返す。
// GET /api/students/:id
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(st))
}

// Update は学生情報を部分更新する。
// PUT /api/students/:id
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	update := model.StudentUpdate{
		Name:           req.Name,
		Email:          req.Email,
		Course:         req.Course,
		EnrollmentYear: req.EnrollmentYear,
	}
	if req.Status != nil {
		status := model.StudentStatus(*req.Status)
		update.Status = &status
	}

	st, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentResponse(st))
}

// Delete は学生と紐付くstudentアカウントを削除する。
// DELETE /api/students/:id
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Student removed"})
}

// parsePositiveInt はクエリパラメータを正の整数として解析する。空の場合は0を返す。
func parsePositiveInt(raw, name string) (int, *model.APIError) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, model.NewValidationError(name + " must be a positive integer")
	}
	return n, nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studentms/internal/auth"
	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/student"
	"github.com/hitoshi/studentms/internal/user"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn func(ctx context.Context, input auth.RegisterInput) (*auth.Result, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.Result, error)
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	updateProfileFn func(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error)
	changeRoleFn    func(ctx context.Context, actor *model.User, targetID string, role model.Role) (*model.User, error)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockUserService) ChangeRole(ctx context.Context, actor *model.User, targetID string, role model.Role) (*model.User, error) {
	if m.changeRoleFn != nil {
		return m.changeRoleFn(ctx, actor, targetID, role)
	}
	return nil, nil
}

// mockStudentService はStudentServiceInterfaceのモック実装。
type mockStudentService struct {
	createFn func(ctx context.Context, input student.CreateInput) (*model.Student, error)
	getFn    func(ctx context.Context, id string) (*model.Student, error)
	listFn   func(ctx context.Context, filter model.StudentFilter) (*model.StudentPage, error)
	updateFn func(ctx context.Context, id string, update model.StudentUpdate) (*model.Student, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockStudentService) Create(ctx context.Context, input student.CreateInput) (*model.Student, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return nil, nil
}

func (m *mockStudentService) Get(ctx context.Context, id string) (*model.Student, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewStudentNotFoundError()
}

func (m *mockStudentService) List(ctx context.Context, filter model.StudentFilter) (*model.StudentPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return &model.StudentPage{Page: 1, Limit: 10}, nil
}

func (m *mockStudentService) Update(ctx context.Context, id string, update model.StudentUpdate) (*model.Student, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, nil
}

func (m *mockStudentService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

var (
	_ AuthServiceInterface    = (*auth.Service)(nil)
	_ UserServiceInterface    = (*user.Service)(nil)
	_ StudentServiceInterface = (*student.Service)(nil)
)

// --- テストヘルパー ---

// withUser はテスト用にリクエストコンテキストに認証済みユーザーを注入するヘルパー。
func withUser(r *http.Request, u *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), u))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeJSON はレスポンスボディを汎用マップにデコードするヘルパー。
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func adminUser() *model.User {
	return &model.User{ID: "admin-1", Email: "admin@example.com", FullName: "Admin", Role: model.RoleAdmin}
}

func studentUser() *model.User {
	return &model.User{ID: "student-1", Email: "a@x.com", FullName: "A", Role: model.RoleStudent}
}

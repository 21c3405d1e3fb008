package student

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/repository"
)

// --- モック ---

type mockStudentRepo struct {
	listFn func(ctx context.Context, filter model.StudentFilter) ([]*model.Student, int, error)
}

func (m *mockStudentRepo) FindByID(context.Context, string) (*model.Student, error) { return nil, nil }
func (m *mockStudentRepo) List(ctx context.Context, filter model.StudentFilter) ([]*model.Student, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}
func (m *mockStudentRepo) Create(context.Context, *model.Student) error { return nil }
func (m *mockStudentRepo) Update(context.Context, *model.Student) error { return nil }
func (m *mockStudentRepo) DeleteWithLinkedUser(context.Context, string) error { return nil }

var _ repository.StudentRepository = (*mockStudentRepo)(nil)

type fixture struct {
	svc   *Service
	users *repository.MemoryUserRepo
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	users := store.Users()
	return &fixture{
		svc:   NewService(store.Students(), users, nil),
		users: users,
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

func addUser(t *testing.T, f *fixture, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ID: "u-" + email, Email: email, Role: role, PasswordHash: "h"}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("user Create failed: %v", err)
	}
	return u
}

// --- テスト ---

func TestCreate_Defaults(t *testing.T) {
	f := newFixture()
	st, err := f.svc.Create(context.Background(), CreateInput{Name: " Jane ", Email: "Jane@Example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if st.Name != "Jane" || st.Email != "jane@example.com" {
		t.Errorf("student = %+v", st)
	}
	if st.Status != model.StudentStatusActive {
		t.Errorf("Status = %q, want Active", st.Status)
	}
	if st.UserID != nil {
		t.Error("UserID should be nil without a matching account")
	}
}

func TestCreate_LinksStudentAccount(t *testing.T) {
	f := newFixture()
	u := addUser(t, f, "linked@example.com", model.RoleStudent)

	st, err := f.svc.Create(context.Background(), CreateInput{Name: "L", Email: "LINKED@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if st.UserID == nil || *st.UserID != u.ID {
		t.Errorf("UserID = %v, want %s", st.UserID, u.ID)
	}
}

func TestCreate_DoesNotLinkAdminAccount(t *testing.T) {
	f := newFixture()
	addUser(t, f, "boss@example.com", model.RoleAdmin)

	st, err := f.svc.Create(context.Background(), CreateInput{Name: "B", Email: "boss@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if st.UserID != nil {
		t.Error("admin account must not be linked")
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		input CreateInput
	}{
		{"名前なし", CreateInput{Email: "a@x.com"}},
		{"メールアドレスなし", CreateInput{Name: "A"}},
		{"不正なステータス", CreateInput{Name: "A", Email: "a@x.com", Status: "Suspended"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.input)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestCreate_Duplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, CreateInput{Name: "A", Email: "a@x.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := f.svc.Create(ctx, CreateInput{Name: "A2", Email: "A@x.com"})
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateEmail)
}

func TestList_PagingDefaultsAndLimits(t *testing.T) {
	tests := []struct {
		name      string
		in        model.StudentFilter
		wantPage  int
		wantLimit int
	}{
		{"既定値", model.StudentFilter{}, DefaultPage, DefaultLimit},
		{"指定値", model.StudentFilter{Page: 3, Limit: 25}, 3, 25},
		{"上限", model.StudentFilter{Page: 1, Limit: 1000}, 1, MaxLimit},
		{"負の値", model.StudentFilter{Page: -1, Limit: -5}, DefaultPage, DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.StudentFilter
			svc := NewService(&mockStudentRepo{
				listFn: func(_ context.Context, filter model.StudentFilter) ([]*model.Student, int, error) {
					got = filter
					return nil, 0, nil
				},
			}, nil, nil)

			page, err := svc.List(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if got.Page != tt.wantPage || got.Limit != tt.wantLimit {
				t.Errorf("repo filter = %+v", got)
			}
			if page.Page != tt.wantPage || page.Limit != tt.wantLimit {
				t.Errorf("page meta = %+v", page)
			}
		})
	}
}

func TestList_PageTooLarge(t *testing.T) {
	called := false
	svc := NewService(&mockStudentRepo{
		listFn: func(context.Context, model.StudentFilter) ([]*model.Student, int, error) {
			called = true
			return nil, 0, nil
		},
	}, nil, nil)

	for _, page := range []int{MaxPage + 1, math.MaxInt} {
		_, err := svc.List(context.Background(), model.StudentFilter{Page: page, Limit: MaxLimit})
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	}
	if called {
		t.Error("repository should not be queried for an out-of-range page")
	}

	if _, err := svc.List(context.Background(), model.StudentFilter{Page: MaxPage, Limit: MaxLimit}); err != nil {
		t.Errorf("MaxPage should be accepted: %v", err)
	}
}

func TestList_InvalidStatus(t *testing.T) {
	f := newFixture()
	_, err := f.svc.List(context.Background(), model.StudentFilter{Status: "Unknown"})
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestList_PagesMeta(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 23; i++ {
		f.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		if _, err := f.svc.Create(ctx, CreateInput{Name: "S", Email: fmt.Sprintf("s%d@x.com", i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page, err := f.svc.List(ctx, model.StudentFilter{Page: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 23 || page.Pages() != 3 || len(page.Students) != 3 {
		t.Errorf("total=%d pages=%d len=%d", page.Total, page.Pages(), len(page.Students))
	}
	first, _ := f.svc.List(ctx, model.StudentFilter{})
	if first.Students[0].Email != "s22@x.com" {
		t.Errorf("newest first expected, got %s", first.Students[0].Email)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeStudentNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	st, _ := f.svc.Create(ctx, CreateInput{Name: "A", Email: "a@x.com", Course: "CS"})
	if _, err := f.svc.Create(ctx, CreateInput{Name: "B", Email: "b@x.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	graduated := model.StudentStatusGraduated
	course := "Math"
	updated, err := f.svc.Update(ctx, st.ID, model.StudentUpdate{Status: &graduated, Course: &course})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != graduated || updated.Course != "Math" || updated.Name != "A" {
		t.Errorf("updated = %+v", updated)
	}

	t.Run("メールアドレス重複", func(t *testing.T) {
		email := "B@x.com"
		_, err := f.svc.Update(ctx, st.ID, model.StudentUpdate{Email: &email})
		assertAPIErrorCode(t, err, model.ErrCodeDuplicateEmail)
	})

	t.Run("不正なステータス", func(t *testing.T) {
		bad := model.StudentStatus("Paused")
		_, err := f.svc.Update(ctx, st.ID, model.StudentUpdate{Status: &bad})
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	})

	t.Run("空の名前", func(t *testing.T) {
		empty := " "
		_, err := f.svc.Update(ctx, st.ID, model.StudentUpdate{Name: &empty})
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	})

	t.Run("存在しない", func(t *testing.T) {
		_, err := f.svc.Update(ctx, "missing", model.StudentUpdate{})
		assertAPIErrorCode(t, err, model.ErrCodeStudentNotFound)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := addUser(t, f, "gone@example.com", model.RoleStudent)
	st, _ := f.svc.Create(ctx, CreateInput{Name: "G", Email: "gone@example.com"})

	if err := f.svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := f.users.FindByID(ctx, u.ID); got != nil {
		t.Error("linked student account should be deleted")
	}
	assertAPIErrorCode(t, f.svc.Delete(ctx, st.ID), model.ErrCodeStudentNotFound)
}

func TestDelete_RemovesAccountRegisteredAfterRosterEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	st, err := f.svc.Create(ctx, CreateInput{Name: "Late", Email: "late@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if st.UserID != nil {
		t.Fatal("no account exists yet, entry should be unlinked")
	}
	u := addUser(t, f, "late@example.com", model.RoleStudent)

	if err := f.svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := f.users.FindByID(ctx, u.ID); got != nil {
		t.Error("account registered after the roster entry should be deleted")
	}
}

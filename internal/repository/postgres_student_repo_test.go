package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studentms/internal/model"
)

// PostgresStudentRepoはStudentRepositoryインターフェースを満たすことを検証
func TestPostgresStudentRepo_ImplementsInterface(t *testing.T) {
	var _ StudentRepository = (*PostgresStudentRepo)(nil)
}

func TestBuildStudentWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   model.StudentFilter
		wantSQL  string
		wantArgs int
	}{
		{"条件なし", model.StudentFilter{}, "", 0},
		{"courseのみ", model.StudentFilter{Course: "CS"}, " WHERE lower(course) = lower($1)", 1},
		{"statusのみ", model.StudentFilter{Status: model.StudentStatusActive}, " WHERE status = $1", 1},
		{
			"両方",
			model.StudentFilter{Course: "CS", Status: model.StudentStatusDropped},
			" WHERE lower(course) = lower($1) AND status = $2",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildStudentWhere(tt.filter)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func newTestStudent(email, course string, status model.StudentStatus, createdAt time.Time) *model.Student {
	return &model.Student{
		ID:        uuid.New().String(),
		Name:      "Student " + email,
		Email:     email,
		Course:    course,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestPostgresStudentRepo_ListFilterAndOrder(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresStudentRepo(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	seed := []*model.Student{
		newTestStudent("s1@example.com", "CS", model.StudentStatusActive, base),
		newTestStudent("s2@example.com", "CS", model.StudentStatusGraduated, base.Add(time.Minute)),
		newTestStudent("s3@example.com", "Math", model.StudentStatusActive, base.Add(2*time.Minute)),
		newTestStudent("s4@example.com", "cs", model.StudentStatusActive, base.Add(3*time.Minute)),
	}
	for _, s := range seed {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	students, total, err := repo.List(ctx, model.StudentFilter{Course: "CS", Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(students) != 2 {
		t.Fatalf("len = %d, want 2", len(students))
	}
	// 新しい順
	if students[0].Email != "s4@example.com" || students[1].Email != "s2@example.com" {
		t.Errorf("order = [%s, %s]", students[0].Email, students[1].Email)
	}

	students, total, err = repo.List(ctx, model.StudentFilter{Status: model.StudentStatusActive, Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(students) != 1 || students[0].Email != "s1@example.com" {
		t.Errorf("page 2 = %d items (total %d)", len(students), total)
	}
}

func TestPostgresStudentRepo_CreateDuplicateAndUpdate(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresStudentRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	s := newTestStudent("dup@example.com", "CS", model.StudentStatusActive, now)
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newTestStudent("Dup@Example.com", "", model.StudentStatusActive, now)); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicateEmail", err)
	}

	s.Status = model.StudentStatusGraduated
	s.Course = ""
	if err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := repo.FindByID(ctx, s.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID = %+v, %v", got, err)
	}
	if got.Status != model.StudentStatusGraduated || got.Course != "" {
		t.Errorf("updated student = %+v", got)
	}
}

func TestPostgresStudentRepo_DeleteWithLinkedUser(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	students := NewPostgresStudentRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	studentUser := newTestUser("linked@example.com", model.RoleStudent)
	adminUser := newTestUser("admin-linked@example.com", model.RoleAdmin)
	for _, u := range []*model.User{studentUser, adminUser} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("user Create failed: %v", err)
		}
	}

	linked := newTestStudent("linked@example.com", "", model.StudentStatusActive, now)
	linked.UserID = &studentUser.ID
	linkedAdmin := newTestStudent("admin-linked@example.com", "", model.StudentStatusActive, now)
	linkedAdmin.UserID = &adminUser.ID
	for _, s := range []*model.Student{linked, linkedAdmin} {
		if err := students.Create(ctx, s); err != nil {
			t.Fatalf("student Create failed: %v", err)
		}
	}

	t.Run("studentロールのユーザーも削除される", func(t *testing.T) {
		if err := students.DeleteWithLinkedUser(ctx, linked.ID); err != nil {
			t.Fatalf("DeleteWithLinkedUser failed: %v", err)
		}
		if u, _ := users.FindByID(ctx, studentUser.ID); u != nil {
			t.Error("linked student user should be deleted")
		}
	})

	t.Run("adminロールのユーザーは削除されない", func(t *testing.T) {
		if err := students.DeleteWithLinkedUser(ctx, linkedAdmin.ID); err != nil {
			t.Fatalf("DeleteWithLinkedUser failed: %v", err)
		}
		if u, _ := users.FindByID(ctx, adminUser.ID); u == nil {
			t.Error("admin user should survive")
		}
	})

	t.Run("名簿作成後に登録されたstudentアカウントも削除される", func(t *testing.T) {
		entry := newTestStudent("late@example.com", "", model.StudentStatusActive, now)
		if err := students.Create(ctx, entry); err != nil {
			t.Fatalf("student Create failed: %v", err)
		}
		late := newTestUser("late@example.com", model.RoleStudent)
		if err := users.Create(ctx, late); err != nil {
			t.Fatalf("user Create failed: %v", err)
		}

		if err := students.DeleteWithLinkedUser(ctx, entry.ID); err != nil {
			t.Fatalf("DeleteWithLinkedUser failed: %v", err)
		}
		if u, _ := users.FindByID(ctx, late.ID); u != nil {
			t.Error("account matching the roster email should be deleted")
		}
	})

	t.Run("存在しない学生", func(t *testing.T) {
		if err := students.DeleteWithLinkedUser(ctx, linked.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

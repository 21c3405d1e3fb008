// Package student は管理者向けの学生名簿管理を提供する。
package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/repository"
)

// ページングの既定値と上限
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage は(Page-1)*LimitがOFFSETとして溢れないための上限。
	MaxPage = 1_000_000
)

// UserFinder は名簿とアカウントの紐付けに使うユーザー検索インターフェース。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// TextSanitizer は名簿のテキスト項目を無害化するインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// CreateInput は学生作成の入力。
type CreateInput struct {
	Name           string
	Email          string
	Course         string
	EnrollmentYear *int
	Status         model.StudentStatus
}

// Service は学生名簿のサービス層。
type Service struct {
	repo      repository.StudentRepository
	users     UserFinder
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
// usersがnilの場合はアカウントとの紐付けを行わない。
func NewService(repo repository.StudentRepository, users UserFinder, sanitizer TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create は学生を作成する。
// 同じメールアドレスのstudentロールのアカウントが存在する場合は紐付ける。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Student, error) {
	name := s.clean(input.Name)
	if name == "" {
		return nil, model.NewValidationError("name is required")
	}
	email := model.NormalizeEmail(input.Email)
	if email == "" {
		return nil, model.NewValidationError("email is required")
	}
	status := input.Status
	if status == "" {
		status = model.StudentStatusActive
	}
	if !status.Valid() {
		return nil, model.NewValidationError("status must be one of Active, Graduated, Dropped")
	}

	now := s.now().UTC()
	st := &model.Student{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		Course:         s.clean(input.Course),
		EnrollmentYear: input.EnrollmentYear,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if s.users != nil {
		account, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up linked account: %w", err)
		}
		if account != nil && account.Role == model.RoleStudent {
			st.UserID = &account.ID
		}
	}

	if err := s.repo.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	slog.Info("student created",
		slog.String("student_id", st.ID),
		slog.Bool("linked", st.UserID != nil),
	)
	return st, nil
}

// Get は指定IDの学生を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Student, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if st == nil {
		return nil, model.NewStudentNotFoundError()
	}
	return st, nil
}

// List は絞り込み条件に一致する学生を新しい順に1ページ分返す。
// Page, Limitが0以下の場合は既定値を使い、LimitはMaxLimitで頭打ちにする。
// PageがMaxPageを超える場合はVALIDATION_ERRORを返す。
func (s *Service) List(ctx context.Context, filter model.StudentFilter) (*model.StudentPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.NewValidationError("status must be one of Active, Graduated, Dropped")
	}
	if filter.Page < 1 {
		filter.Page = DefaultPage
	}
	if filter.Page > MaxPage {
		return nil, model.NewValidationError(fmt.Sprintf("page must be at most %d", MaxPage))
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	return &model.StudentPage{
		Students: students,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}, nil
}

// Update は指定フィールドのみを更新する。
func (s *Service) Update(ctx context.Context, id string, update model.StudentUpdate) (*model.Student, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := s.clean(*update.Name)
		if name == "" {
			return nil, model.NewValidationError("name must not be empty")
		}
		st.Name = name
	}
	if update.Email != nil {
		email := model.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, model.NewValidationError("email must not be empty")
		}
		st.Email = email
	}
	if update.Course != nil {
		st.Course = s.clean(*update.Course)
	}
	if update.EnrollmentYear != nil {
		year := *update.EnrollmentYear
		st.EnrollmentYear = &year
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, model.NewValidationError("status must be one of Active, Graduated, Dropped")
		}
		st.Status = *update.Status
	}
	st.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, st); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewStudentNotFoundError()
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	return st, nil
}

// Delete は学生と、紐付くstudentロールのアカウントを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteWithLinkedUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewStudentNotFoundError()
		}
		return fmt.Errorf("failed to delete student: %w", err)
	}

	slog.Info("student removed", slog.String("student_id", id))
	return nil
}

func (s *Service) clean(v string) string {
	if s.sanitizer != nil {
		return s.sanitizer.SanitizeText(v)
	}
	return strings.TrimSpace(v)
}

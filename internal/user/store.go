// Package user はユーザーアカウントの永続化とプロフィール・ロール管理を提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/repository"
)

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
// 文字数ではなくバイト数で判定するため、マルチバイト文字は1文字で複数バイトを消費する。
const MaxPasswordBytes = 72

// checkPassword はパスワードが空でなく、ハッシュ可能な長さであることを検証する。
func checkPassword(password string) error {
	if password == "" {
		return model.NewValidationError("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return model.NewValidationError(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

// PasswordHasher はパスワードハッシュのインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Store は資格情報ストア。
// パスワードは書き込み前に必ずハッシュ化し、平文を永続化しない。
// メールアドレスの一意性はリポジトリ（ストレージ層の制約）に委ね、事前チェックは行わない。
type Store struct {
	repo   repository.UserRepository
	hasher PasswordHasher
	now    func() time.Time
}

// NewStore はStoreを生成する。
func NewStore(repo repository.UserRepository, hasher PasswordHasher) *Store {
	return &Store{
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
	}
}

// Create はユーザーを作成し、保存されたレコードを返す。
// メールアドレスが既に使われている場合はDUPLICATE_EMAILのAPIErrorを返す。
func (s *Store) Create(ctx context.Context, input model.NewUser) (*model.User, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" {
		return nil, model.NewValidationError("email is required")
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, model.NewValidationError("role must be admin or student")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		FullName:       input.FullName,
		Phone:          input.Phone,
		Course:         input.Course,
		ProfilePicture: input.ProfilePicture,
		EnrollmentYear: input.EnrollmentYear,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合は(nil, nil)を返す。
func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	normalized := model.NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合は(nil, nil)を返す。
func (s *Store) FindByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// VerifyPassword は候補パスワードが保存済みハッシュと一致するかを返す。
func (s *Store) VerifyPassword(user *model.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return s.hasher.Compare(user.PasswordHash, candidate)
}

// Update は指定フィールドのみを更新し、更新後のレコードを返す。
// パスワードはupdate.Passwordがnilでない場合に限り再ハッシュする。
// 更新対象のフィールドがない場合は書き込みを行わず現在のレコードを返す。
func (s *Store) Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if update.IsEmpty() {
		return user, nil
	}

	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Course != nil {
		user.Course = *update.Course
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}
	if update.EnrollmentYear != nil {
		year := *update.EnrollmentYear
		user.EnrollmentYear = &year
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, model.NewValidationError("role must be admin or student")
		}
		user.Role = *update.Role
	}
	if update.Password != nil {
		if err := checkPassword(*update.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
		slog.Info("password updated", slog.String("user_id", user.ID))
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

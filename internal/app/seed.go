package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/studentms/internal/model"
	"github.com/hitoshi/studentms/internal/student"
)

// SeedPassword は初期データのアカウントに設定するパスワード。
const SeedPassword = "Password@123"

// AccountStore は初期データ投入で使うアカウント操作のインターフェース。
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, input model.NewUser) (*model.User, error)
}

// RosterCreator は初期データ投入で使う名簿作成のインターフェース。
type RosterCreator interface {
	Create(ctx context.Context, input student.CreateInput) (*model.Student, error)
}

// SeedResult は初期データ投入の結果件数。
type SeedResult struct {
	UsersCreated    int
	UsersSkipped    int
	StudentsCreated int
	StudentsSkipped int
}

func intPtr(v int) *int { return &v }

var seedAccounts = []model.NewUser{
	{Email: "admin@example.com", Role: model.RoleAdmin, FullName: "Admin User"},
	{Email: "student1@example.com", Role: model.RoleStudent, FullName: "Student One", Course: "Computer Science", EnrollmentYear: intPtr(2023)},
	{Email: "student2@example.com", Role: model.RoleStudent, FullName: "Student Two", Course: "Mathematics", EnrollmentYear: intPtr(2024)},
}

var seedRoster = []student.CreateInput{
	{Name: "Student One", Email: "student1@example.com", Course: "Computer Science", EnrollmentYear: intPtr(2023), Status: model.StudentStatusActive},
	{Name: "Student Two", Email: "student2@example.com", Course: "Mathematics", EnrollmentYear: intPtr(2024), Status: model.StudentStatusActive},
}

// Seeder は開発用の初期データを投入する。
// 既に存在するメールアドレスはスキップするため、繰り返し実行できる。
type Seeder struct {
	accounts AccountStore
	roster   RosterCreator
	logger   *slog.Logger
}

// NewSeeder はSeederを生成する。
func NewSeeder(accounts AccountStore, roster RosterCreator, logger *slog.Logger) *Seeder {
	return &Seeder{accounts: accounts, roster: roster, logger: logger}
}

// Run は管理者1名と学生2名のアカウント、および学生2名分の名簿を作成する。
// アカウントを先に作成し、名簿側で同じメールアドレスのアカウントと紐付ける。
func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}

	for _, account := range seedAccounts {
		existing, err := s.accounts.FindByEmail(ctx, account.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", account.Email, err)
		}
		if existing != nil {
			result.UsersSkipped++
			continue
		}

		account.Password = SeedPassword
		created, err := s.accounts.Create(ctx, account)
		if err != nil {
			if isDuplicateEmail(err) {
				result.UsersSkipped++
				continue
			}
			return nil, fmt.Errorf("failed to create %s: %w", account.Email, err)
		}
		result.UsersCreated++
		s.logger.Info("seed user created",
			slog.String("user_id", created.ID),
			slog.String("role", string(created.Role)),
		)
	}

	for _, entry := range seedRoster {
		if _, err := s.roster.Create(ctx, entry); err != nil {
			if isDuplicateEmail(err) {
				result.StudentsSkipped++
				continue
			}
			return nil, fmt.Errorf("failed to create student %s: %w", entry.Email, err)
		}
		result.StudentsCreated++
	}

	return result, nil
}

func isDuplicateEmail(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateEmail
}

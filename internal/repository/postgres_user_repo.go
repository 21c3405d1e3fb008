package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/studentms/internal/model"
)

const userColumns = `id, email, password_hash, role, full_name,
	COALESCE(phone, ''), COALESCE(course, ''), COALESCE(profile_picture, ''),
	enrollment_year, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	var year sql.NullInt64
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &role, &user.FullName,
		&user.Phone, &user.Course, &user.ProfilePicture,
		&year, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	if year.Valid {
		y := int(year.Int64)
		user.EnrollmentYear = &y
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !isValidID(id) {
		return nil, nil
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
// lower(email)のユニークインデックスを利用する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// 同時登録の競合はlower(email)のユニークインデックスで検出し、ErrDuplicateEmailに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, full_name, phone, course,
		                    profile_picture, enrollment_year, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.FullName,
		nullString(user.Phone), nullString(user.Course), nullString(user.ProfilePicture),
		nullInt(user.EnrollmentYear), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はユーザーの可変フィールドを更新する。emailとcreated_atは更新しない。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	if !isValidID(user.ID) {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = $2, role = $3, full_name = $4, phone = $5, course = $6,
		     profile_picture = $7, enrollment_year = $8, updated_at = $9
		 WHERE id = $1`,
		user.ID, user.PasswordHash, string(user.Role), user.FullName,
		nullString(user.Phone), nullString(user.Course), nullString(user.ProfilePicture),
		nullInt(user.EnrollmentYear), user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(result)
}

// DeleteByID は指定IDのユーザーを削除する。
// 紐付く学生名簿のuser_idはON DELETE SET NULLで外れる。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	if !isValidID(id) {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOneRow(result)
}

// expectOneRow は更新・削除の影響行数が0の場合にErrNotFoundを返す。
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

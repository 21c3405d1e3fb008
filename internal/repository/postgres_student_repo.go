package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/studentms/internal/model"
)

const studentColumns = `id, user_id, name, email, COALESCE(course, ''),
	enrollment_year, status, created_at, updated_at`

// PostgresStudentRepo はPostgreSQLを使用した学生名簿リポジトリ。
type PostgresStudentRepo struct {
	db *sql.DB
}

// NewPostgresStudentRepo はPostgresStudentRepoを生成する。
func NewPostgresStudentRepo(db *sql.DB) *PostgresStudentRepo {
	return &PostgresStudentRepo{db: db}
}

func scanStudent(row rowScanner) (*model.Student, error) {
	s := &model.Student{}
	var userID sql.NullString
	var year sql.NullInt64
	var status string
	err := row.Scan(
		&s.ID, &userID, &s.Name, &s.Email, &s.Course,
		&year, &status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.String
		s.UserID = &id
	}
	if year.Valid {
		y := int(year.Int64)
		s.EnrollmentYear = &y
	}
	s.Status = model.StudentStatus(status)
	return s, nil
}

// FindByID は指定IDの学生を取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	if !isValidID(id) {
		return nil, nil
	}

	s, err := scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by ID: %w", err)
	}
	return s, nil
}

// buildStudentWhere は絞り込み条件からWHERE句とパラメータを組み立てる。
// courseは大文字小文字を区別しない完全一致。
func buildStudentWhere(filter model.StudentFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Course != "" {
		args = append(args, filter.Course)
		conds = append(conds, fmt.Sprintf("lower(course) = lower($%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List は絞り込み条件に一致する学生を作成日時の降順で返す。
func (r *PostgresStudentRepo) List(ctx context.Context, filter model.StudentFilter) ([]*model.Student, int, error) {
	where, args := buildStudentWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(
		`SELECT `+studentColumns+` FROM students%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := make([]*model.Student, 0, filter.Limit)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, total, nil
}

// Create は学生を作成する。
func (r *PostgresStudentRepo) Create(ctx context.Context, s *model.Student) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, user_id, name, email, course, enrollment_year, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, nullStringPtr(s.UserID), s.Name, s.Email, nullString(s.Course),
		nullInt(s.EnrollmentYear), string(s.Status), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

// Update は学生の可変フィールドを更新する。
func (r *PostgresStudentRepo) Update(ctx context.Context, s *model.Student) error {
	if !isValidID(s.ID) {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE students
		 SET name = $2, email = $3, course = $4, enrollment_year = $5, status = $6, updated_at = $7
		 WHERE id = $1`,
		s.ID, s.Name, s.Email, nullString(s.Course), nullInt(s.EnrollmentYear),
		string(s.Status), s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	return expectOneRow(result)
}

// DeleteWithLinkedUser は学生と紐付くstudentロールのユーザーを同一トランザクションで削除する。
// 名簿作成後に登録されたため未紐付けのアカウントは、同じメールアドレスで特定する。
func (r *PostgresStudentRepo) DeleteWithLinkedUser(ctx context.Context, id string) error {
	if !isValidID(id) {
		return ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		userID sql.NullString
		email  string
	)
	err = tx.QueryRowContext(ctx,
		`DELETE FROM students WHERE id = $1 RETURNING user_id, email`,
		id,
	).Scan(&userID, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if userID.Valid {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM users WHERE id = $1 AND role = 'student'`,
			userID.String,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM users WHERE lower(email) = lower($1) AND role = 'student'`,
			email,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to delete linked user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StudentRepository = (*PostgresStudentRepo)(nil)

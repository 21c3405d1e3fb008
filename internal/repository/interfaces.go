// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/studentms/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
	// アプリケーション側の事前チェックではなく、ストレージ層の制約から返される。
	ErrDuplicateEmail = errors.New("repository: duplicate email")

	// ErrNotFound は更新・削除対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("repository: not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に使われている場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの可変フィールドとパスワードハッシュを上書きする。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// StudentRepository は学生名簿の永続化インターフェース。
type StudentRepository interface {
	// FindByID は指定IDの学生を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Student, error)

	// List は絞り込み条件に一致する学生を作成日時の降順で返す。
	// 2つ目の戻り値はページングを適用する前の総件数。
	List(ctx context.Context, filter model.StudentFilter) ([]*model.Student, int, error)

	// Create は学生を作成する。
	// メールアドレスが既に使われている場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, student *model.Student) error

	// Update は学生の可変フィールドを上書きする。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, student *model.Student) error

	// DeleteWithLinkedUser は学生を削除し、紐付くstudentロールのユーザーアカウントも
	// 同一トランザクションで削除する。未紐付けの場合は同じメールアドレスの
	// studentロールのユーザーを対象にする。adminロールのユーザーは削除しない。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteWithLinkedUser(ctx context.Context, id string) error
}

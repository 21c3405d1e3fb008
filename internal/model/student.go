package model

import "time"

// StudentStatus は在籍状況を表す。
type StudentStatus string

const (
	// StudentStatusActive は在籍中。
	StudentStatusActive StudentStatus = "Active"
	// StudentStatusGraduated は卒業済み。
	StudentStatusGraduated StudentStatus = "Graduated"
	// StudentStatusDropped は退学済み。
	StudentStatusDropped StudentStatus = "Dropped"
)

// Valid は在籍状況が定義済みの値かどうかを返す。
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusGraduated, StudentStatusDropped:
		return true
	default:
		return false
	}
}

// Student は管理者が管理する学生名簿のエントリを表す。
// 同じメールアドレスのstudentロールのユーザーが存在する場合はUserIDで紐付く。
type Student struct {
	ID             string
	UserID         *string
	Name           string
	Email          string
	Course         string
	EnrollmentYear *int
	Status         StudentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StudentUpdate は学生エントリの部分更新を表す。nilのフィールドは変更しない。
type StudentUpdate struct {
	Name           *string
	Email          *string
	Course         *string
	EnrollmentYear *int
	Status         *StudentStatus
}

// StudentFilter は学生一覧の絞り込み条件とページングを表す。
type StudentFilter struct {
	Course string
	Status StudentStatus
	Page   int
	Limit  int
}

// Offset はページ番号とページサイズからOFFSET値を算出する。
func (f StudentFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// StudentPage は学生一覧の1ページ分の結果を表す。
type StudentPage struct {
	Students []*Student
	Total    int
	Page     int
	Limit    int
}

// Pages は総ページ数を返す。
func (p StudentPage) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

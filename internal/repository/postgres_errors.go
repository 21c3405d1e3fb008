package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation = "23505"
)

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// isValidID はIDがUUID形式かどうかを判定する。
// UUID以外の文字列でクエリを発行するとPostgreSQLが型エラーを返すため、事前に弾く。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt はnilをNULLとして扱う。
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullStringPtr はnilをNULLとして扱う。
func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

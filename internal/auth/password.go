package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost はパスワードハッシュに許容する最小のワークファクター。
const MinBcryptCost = 10

// BcryptHasher はbcryptによるパスワードハッシュを提供する。
// ソルトはハッシュ文字列に含まれるため、別途保持しない。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costがMinBcryptCost未満またはbcrypt.MaxCostを超える場合はエラーを返す。
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < MinBcryptCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", MinBcryptCost, bcrypt.MaxCost, cost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash は平文パスワードをハッシュ化する。
// bcryptの仕様上、72バイトを超えるパスワードはエラーになる。
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare はハッシュと平文パスワードが一致するかを返す。
// ハッシュが不正な形式の場合もfalseを返す。
func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

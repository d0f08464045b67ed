// Package auth はパスワード認証、JWT発行、weather.comセッション管理を提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword はパスワードをbcryptでハッシュ化する。
// コストはbcrypt.DefaultCost（10）を使用する。
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword はパスワードがハッシュと一致するかを検証する。
// 一致しない場合はfalseを返す。
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

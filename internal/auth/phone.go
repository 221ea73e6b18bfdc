package auth

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

const (
	// MinPhoneDigits は正規化後の電話番号に必要な最小桁数。
	MinPhoneDigits = 10
	// MaxPhoneDigits は正規化後の電話番号の最大桁数（E.164）。
	MaxPhoneDigits = 15
)

// NormalizePhoneNumber は電話番号から数字以外の文字（+、括弧、ハイフン、空白など）を取り除く。
func NormalizePhoneNumber(phone string) string {
	var sb strings.Builder
	sb.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ValidatePhoneNumber は電話番号を正規化し、桁数が範囲内であれば正規化済みの値を返す。
// 範囲外の場合はfalseを返す。
func ValidatePhoneNumber(phone string) (string, bool) {
	normalized := NormalizePhoneNumber(phone)
	if len(normalized) < MinPhoneDigits || len(normalized) > MaxPhoneDigits {
		return "", false
	}
	return normalized, true
}

// passwordAlphabet は生成パスワードに使う文字。紛らわしい文字（0/O、1/l/I）は除く。
const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePassword は暗号的に安全な乱数でlength文字のパスワードを生成する。
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive: %d", length)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	// 256はアルファベット長の倍数ではないため、偏りを避けて棄却サンプリングする
	limit := byte(256 - 256%len(passwordAlphabet))
	out := make([]byte, 0, length)
	for len(out) < length {
		for _, c := range b {
			if c >= limit {
				continue
			}
			out = append(out, passwordAlphabet[int(c)%len(passwordAlphabet)])
			if len(out) == length {
				break
			}
		}
		if len(out) < length {
			if _, err := rand.Read(b); err != nil {
				return "", fmt.Errorf("failed to read random bytes: %w", err)
			}
		}
	}
	return string(out), nil
}

// isPrintablePassword はパスワードが制御文字を含まないかを返す。
func isPrintablePassword(password string) bool {
	for _, r := range password {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

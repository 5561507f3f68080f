// Package signature проверяет подлинность входящих вебхуков по HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GitHubPrefix - префикс заголовка X-Hub-Signature-256.
const GitHubPrefix = "sha256="

// Verify сравнивает hex-дайджест HMAC-SHA256 от body с переданной подписью.
func Verify(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return constantTimeEqual(expected, signature)
}

// VerifyWithPrefix проверяет подпись вида "sha256=<hex>", как её шлёт GitHub.
func VerifyWithPrefix(body []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, GitHubPrefix) {
		return false
	}
	return Verify(body, strings.TrimPrefix(signature, GitHubPrefix), secret)
}

// constantTimeEqual сравнивает строки за время, не зависящее от содержимого.
// При разной длине сравнение содержимого не выполняется.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

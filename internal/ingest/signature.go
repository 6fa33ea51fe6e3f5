// Package ingest проверяет подписи вебхуков каналов и декодирует их тела
// в канонические события продаж.
package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
)

// VerifySignature сверяет HMAC-SHA256 тела запроса с заголовком.
// Подпись принимается в hex или base64, с необязательным префиксом "sha256=".
// Пустой secret отключает проверку.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return nil
	}

	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "sha256=")
	if header == "" {
		return e.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if got, err := hex.DecodeString(header); err == nil && hmac.Equal(got, expected) {
		return nil
	}
	if got, err := base64.StdEncoding.DecodeString(header); err == nil && hmac.Equal(got, expected) {
		return nil
	}

	return e.ErrInvalidSignature
}

// Sign возвращает hex-подпись тела. Используется клиентами и тестами.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ChallengeResponse отвечает на проверку endpoint маркетплейса:
// hex(sha256(challengeCode + verificationToken + endpointURL)).
func ChallengeResponse(challengeCode, verificationToken, endpointURL string) string {
	h := sha256.New()
	h.Write([]byte(challengeCode))
	h.Write([]byte(verificationToken))
	h.Write([]byte(endpointURL))
	return hex.EncodeToString(h.Sum(nil))
}

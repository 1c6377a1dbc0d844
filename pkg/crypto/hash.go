package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Хеширование API токенов
//
// В БД хранится только bcrypt-хеш секрета: утечка таблицы api_tokens
// не даёт рабочих токенов. Cost по умолчанию bcrypt'а достаточен -
// проверка происходит раз на запрос и не лежит на горячем пути БД.

// HashToken возвращает bcrypt-хеш секрета токена
func HashToken(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// CheckToken сравнивает секрет с хранимым хешем
func CheckToken(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// GenerateSecret возвращает криптостойкий секрет для нового токена
// (hex, 2*n символов)
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

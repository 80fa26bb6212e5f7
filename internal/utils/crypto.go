package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenHash is the at-rest form of a refresh token.
func TokenHash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

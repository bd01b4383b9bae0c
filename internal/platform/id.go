package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const tokenLength = 40

func NewID() string {
	return uuid.New().String()
}

// NewToken generates a random bearer-token secret. Only the sha256 hash of
// the returned value is stored at rest.
func NewToken(prefix string) string {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]%byte(len(tokenAlphabet))]
	}
	return prefix + string(b)
}

package engine

import (
	"crypto/rand"
	"encoding/hex"
)

// newToken generates an unpredictable >=128-bit lease token, ASCII
// encoded, unique per lease call (not per message).
func newToken() (string, error) {
	buf := make([]byte, 16) // 128 bits
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

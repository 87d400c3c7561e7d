package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"math/big"
)

var ErrRandomSource = errors.New("failed to read random source")

// GenerateSessionID returns an unguessable, URL-safe session identifier.
func GenerateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", ErrRandomSource
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSecurityCode returns a numeric one-time code of the given length.
// Each digit is drawn independently so the code keeps a uniform distribution.
func GenerateSecurityCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", ErrRandomSource
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

package security

import (
	"errors"
	"os"
	"strings"
)

// MinSecretLen is the shortest signing secret accepted for HS256.
const MinSecretLen = 32

// ErrInvalidSecret is returned when the signing secret is empty or too short.
var ErrInvalidSecret = errors.New("invalid signing secret")

// LoadSecret returns the signing secret. s is either the secret itself or, when prefixed
// with "file:", a path whose trimmed content is the secret.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if path, ok := strings.CutPrefix(s, "file:"); ok {
		b, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(string(b))
	}
	if len(s) < MinSecretLen {
		return nil, ErrInvalidSecret
	}
	return []byte(s), nil
}

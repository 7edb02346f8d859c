package security

import "time"

// testSecret is for unit tests only. Do not use in production.
const testSecret = "test-secret-test-secret-test-secret-0123"

// NewTestTokenCodec returns a TokenCodec using a fixed test secret and issuer.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec(now func() time.Time) *TokenCodec {
	if now == nil {
		now = time.Now
	}
	return NewTokenCodec([]byte(testSecret), "test-issuer", WithTokenClock(now))
}

// NewTestHasher returns a cheap argon2id Hasher for tests.
func NewTestHasher() *Hasher {
	return NewHasher(Argon2Params{Memory: 1024, Time: 1, Threads: 1})
}

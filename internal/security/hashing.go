package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch is returned when the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrUnknownHashScheme is returned when the stored hash has no recognised prefix.
	ErrUnknownHashScheme = errors.New("unknown password hash scheme")
)

// Scheme identifies how a stored password hash was produced.
type Scheme string

const (
	SchemeUnknown  Scheme = ""
	SchemeBcrypt   Scheme = "bcrypt"   // legacy
	SchemeArgon2id Scheme = "argon2id" // current
)

// SchemeOf sniffs the scheme from the hash prefix.
func SchemeOf(hash string) Scheme {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

var verifiers = map[Scheme]func(hash string, password []byte) error{
	SchemeBcrypt:   verifyBcrypt,
	SchemeArgon2id: verifyArgon2id,
}

// VerifyPassword checks password against hash with whichever scheme produced it.
// Returns nil on match, ErrPasswordMismatch on mismatch, ErrUnknownHashScheme or a parse
// error for hashes it cannot read.
func VerifyPassword(hash string, password []byte) error {
	verify, ok := verifiers[SchemeOf(hash)]
	if !ok {
		return ErrUnknownHashScheme
	}
	return verify(hash, password)
}

// NeedsRehash reports whether hash should be upgraded to the current scheme.
func NeedsRehash(hash string) bool {
	return SchemeOf(hash) != SchemeArgon2id
}

func verifyBcrypt(hash string, password []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func verifyArgon2id(hash string, password []byte) error {
	p, salt, key, err := decodeArgon2id(hash)
	if err != nil {
		return err
	}
	other := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, other) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// Argon2Params are the argon2id cost parameters for newly produced hashes.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params is a reasonable interactive-login cost.
var DefaultArgon2Params = Argon2Params{Memory: 64 * 1024, Time: 1, Threads: 2, SaltLen: 16, KeyLen: 32}

// Hasher produces current-scheme (argon2id) hashes. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	params Argon2Params
}

// NewHasher returns a Hasher using p; zero fields fall back to DefaultArgon2Params.
func NewHasher(p Argon2Params) *Hasher {
	if p.Memory == 0 {
		p.Memory = DefaultArgon2Params.Memory
	}
	if p.Time == 0 {
		p.Time = DefaultArgon2Params.Time
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2Params.Threads
	}
	if p.SaltLen == 0 {
		p.SaltLen = DefaultArgon2Params.SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultArgon2Params.KeyLen
	}
	return &Hasher{params: p}
}

// Hash produces an argon2id hash in the PHC string format.
func (h *Hasher) Hash(password []byte) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(password, salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare verifies password against a hash of either scheme.
func (h *Hasher) Compare(hash string, password []byte) error {
	return VerifyPassword(hash, password)
}

// HashLegacy produces a bcrypt hash. Only seed data and tests create legacy hashes.
func HashLegacy(password []byte, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeArgon2id(hash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return p, nil, nil, errors.New("argon2id: malformed hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("argon2id: version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, errors.New("argon2id: unsupported version")
	}
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return p, nil, nil, fmt.Errorf("argon2id: params: %w", err)
	}
	if threads == 0 || threads > 255 {
		return p, nil, nil, errors.New("argon2id: bad parallelism")
	}
	p.Threads = uint8(threads)
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2id: salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errors.New("argon2id: bad key")
	}
	return p, salt, key, nil
}

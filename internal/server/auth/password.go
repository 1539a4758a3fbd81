package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext password into an opaque encoded credential and
// checks a candidate against it. Compare returns common.ErrInvalidCredentials
// on mismatch.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(encoded, password string) error
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash rejects passwords longer than bcrypt's 72-byte limit with
// common.ErrValidation.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.ErrValidation
		}
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(encoded, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return common.ErrInvalidCredentials
	}
	return fmt.Errorf("%w: %v", common.ErrInvalidCredentials, err)
}

// Argon2Hasher produces PHC strings:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

const argon2Prefix = "$argon2id$"

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(h.SaltLen)
	key := argon2.IDKey([]byte(password), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	defer common.WipeByteArray(key)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.Memory, h.Time, h.Threads,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Compare(encoded, password string) error {
	p, salt, want, err := decodeArgon2(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidCredentials, err)
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	defer common.WipeByteArray(got)

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return common.ErrInvalidCredentials
	}
	return nil
}

func decodeArgon2(encoded string) (*Argon2Hasher, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, errors.New("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, err
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	p := &Argon2Hasher{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, nil, nil, err
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := enc.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, err
	}
	if len(key) == 0 {
		return nil, nil, nil, errors.New("empty argon2 key")
	}

	return p, salt, key, nil
}

// MultiHasher hashes with Primary and verifies any encoding it recognises, so
// stored credentials keep working after the configured algorithm changes.
type MultiHasher struct {
	Primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m *MultiHasher) Compare(encoded, password string) error {
	if strings.HasPrefix(encoded, argon2Prefix) {
		return m.argon2.Compare(encoded, password)
	}
	return m.bcrypt.Compare(encoded, password)
}

// NewHasher builds the hasher named by kind ("bcrypt" or "argon2id").
func NewHasher(kind string, bcryptCost int) (*MultiHasher, error) {
	m := &MultiHasher{
		bcrypt: NewBcryptHasher(bcryptCost),
		argon2: NewArgon2Hasher(),
	}

	switch kind {
	case "", "bcrypt":
		m.Primary = m.bcrypt
	case "argon2id":
		m.Primary = m.argon2
	default:
		return nil, fmt.Errorf("unknown password hasher %q", kind)
	}

	return m, nil
}

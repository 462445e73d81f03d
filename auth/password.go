package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/argon2"
)

const passwordAlgorithmID = "argon2id"

// PasswordHasher irreversible salted password hashing
type PasswordHasher interface {
	/*
		Hash derive a PHC encoded hash from a password

		A fresh random salt is drawn for every call.

			@param ctx context.Context - execution context
			@param password string - the password to hash
			@returns PHC encoded hash string
	*/
	Hash(ctx context.Context, password string) (string, error)

	/*
		Verify check a password against a PHC encoded hash

		The comparison is constant time.

			@param ctx context.Context - execution context
			@param password string - the presented password
			@param encodedHash string - the stored PHC encoded hash
			@returns whether the password matches
	*/
	Verify(ctx context.Context, password string, encodedHash string) (bool, error)
}

// PasswordHasherParams password hasher init parameters
type PasswordHasherParams struct {
	// Memory argon2id memory cost in KiB
	Memory uint32 `validate:"required,gte=8192"`
	// Time argon2id time cost
	Time uint32 `validate:"required,gte=1"`
	// Parallelism argon2id lane count
	Parallelism uint8 `validate:"required,gte=1"`
	// SaltLength random salt length in bytes
	SaltLength uint32 `validate:"required,gte=16"`
	// KeyLength derived key length in bytes
	KeyLength uint32 `validate:"required,gte=16"`
}

/*
DefaultPasswordHasherParams recommended argon2id cost parameters

	@returns default parameters
*/
func DefaultPasswordHasherParams() PasswordHasherParams {
	return PasswordHasherParams{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// passwordHasher implements PasswordHasher
type passwordHasher struct {
	params PasswordHasherParams
}

/*
NewPasswordHasher define new password hasher

	@param ctx context.Context - execution context
	@param params PasswordHasherParams - hasher parameters
	@returns hasher instance
*/
func NewPasswordHasher(_ context.Context, params PasswordHasherParams) (PasswordHasher, error) {
	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid password hasher parameters [%w]", err)
	}

	return &passwordHasher{params: params}, nil
}

/*
Hash derive a PHC encoded hash from a password

	@param ctx context.Context - execution context
	@param password string - the password to hash
	@returns PHC encoded hash string
*/
func (h *passwordHasher) Hash(_ context.Context, password string) (string, error) {
	if password == "" {
		return "", errors.New("refusing to hash an empty password")
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate password salt [%w]", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		passwordAlgorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

/*
Verify check a password against a PHC encoded hash

	@param ctx context.Context - execution context
	@param password string - the presented password
	@param encodedHash string - the stored PHC encoded hash
	@returns whether the password matches
*/
func (h *passwordHasher) Verify(
	_ context.Context, password string, encodedHash string,
) (bool, error) {
	memory, timeCost, parallelism, salt, hash, err := parsePasswordHash(encodedHash)
	if err != nil {
		return false, fmt.Errorf("stored password hash unusable [%w]", err)
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		timeCost,
		memory,
		parallelism,
		uint32(len(hash)),
	)

	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

// parsePasswordHash decode a PHC formatted argon2id hash string
func parsePasswordHash(
	encodedHash string,
) (memory uint32, timeCost uint32, parallelism uint8, salt []byte, hash []byte, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != passwordAlgorithmID {
		return 0, 0, 0, nil, nil, errors.New("not a PHC argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return 0, 0, 0, nil, nil, errors.New("malformed argon2 parameters")
		}
		value, parseErr := strconv.ParseUint(kv[1], 10, 32)
		if parseErr != nil {
			return 0, 0, 0, nil, nil, errors.New("malformed argon2 parameters")
		}
		switch kv[0] {
		case "m":
			memory = uint32(value)
		case "t":
			timeCost = uint32(value)
		case "p":
			parallelism = uint8(value)
		default:
			return 0, 0, 0, nil, nil, errors.New("unknown argon2 parameter")
		}
	}
	if memory == 0 || timeCost == 0 || parallelism == 0 {
		return 0, 0, 0, nil, nil, errors.New("incomplete argon2 parameters")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, errors.New("malformed salt encoding")
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return 0, 0, 0, nil, nil, errors.New("malformed hash encoding")
	}

	return memory, timeCost, parallelism, salt, hash, nil
}

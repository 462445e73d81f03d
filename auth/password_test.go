package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/alwitt/chronicle/auth"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// utPasswordHasherParams cheap cost parameters so the test suite stays fast
func utPasswordHasherParams() auth.PasswordHasherParams {
	return auth.PasswordHasherParams{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// TestPasswordHasherParamValidation verifies constructor parameter checks.
func TestPasswordHasherParamValidation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// 1 - Memory cost too low
	params := utPasswordHasherParams()
	params.Memory = 16
	_, err := auth.NewPasswordHasher(utCtx, params)
	assert.NotNil(err)

	// 2 - Salt too short
	params = utPasswordHasherParams()
	params.SaltLength = 4
	_, err = auth.NewPasswordHasher(utCtx, params)
	assert.NotNil(err)

	// 3 - Defaults are valid
	_, err = auth.NewPasswordHasher(utCtx, auth.DefaultPasswordHasherParams())
	assert.Nil(err)
}

// TestPasswordHasherRoundTrip verifies hashing and verification behavior.
func TestPasswordHasherRoundTrip(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	uut, err := auth.NewPasswordHasher(utCtx, utPasswordHasherParams())
	assert.Nil(err)

	password := uuid.NewString()

	// 1 - Hash produces a PHC encoded argon2id string
	encoded, err := uut.Hash(utCtx, password)
	assert.Nil(err)
	assert.True(strings.HasPrefix(encoded, "$argon2id$"))

	// 2 - The matching password verifies
	matched, err := uut.Verify(utCtx, password, encoded)
	assert.Nil(err)
	assert.True(matched)

	// 3 - A different password does not
	matched, err = uut.Verify(utCtx, uuid.NewString(), encoded)
	assert.Nil(err)
	assert.False(matched)

	// 4 - Hashing the same password twice yields different strings (fresh salt)
	encoded2, err := uut.Hash(utCtx, password)
	assert.Nil(err)
	assert.NotEqual(encoded, encoded2)
	matched, err = uut.Verify(utCtx, password, encoded2)
	assert.Nil(err)
	assert.True(matched)

	// 5 - Empty passwords are refused
	_, err = uut.Hash(utCtx, "")
	assert.NotNil(err)

	// 6 - A mangled stored hash is an error, not a mismatch
	_, err = uut.Verify(utCtx, password, "not-a-phc-hash")
	assert.NotNil(err)
}

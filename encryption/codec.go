// Package encryption - field level envelope encryption
package encryption

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrInvalidKeyLength the configured symmetric key does not decode to the
	// cipher's required key length
	ErrInvalidKeyLength = errors.New("symmetric encryption key has wrong length")

	// ErrDecryptFailed AEAD authentication failed during decryption. The cipher
	// text, nonce, or auth tag was tampered with, or the wrong key is in use.
	ErrDecryptFailed = errors.New("cipher text failed authentication")
)

// Envelope the output of one authenticated field encryption
type Envelope struct {
	// CipherText the encrypted field value
	CipherText []byte
	// Nonce the random nonce used for this encryption only
	Nonce []byte
	// AuthTag the AEAD authentication tag
	AuthTag []byte
}

/*
FieldCodec stateless helper encrypting and decrypting individual string fields
with a process wide symmetric key.

The codec uses XChaCha20-Poly1305 with a fresh random nonce on every encryption.
The same plain text encrypted twice never produces the same envelope.
*/
type FieldCodec interface {
	/*
		EncryptField encrypt one plain text field value

			@param ctx context.Context - execution context
			@param plainText string - the field value to encrypt
			@returns the envelope holding cipher text, nonce, and auth tag
	*/
	EncryptField(ctx context.Context, plainText string) (Envelope, error)

	/*
		DecryptField decrypt one field envelope

		The auth tag is verified before any plain text is returned. A tag
		mismatch is a hard failure.

			@param ctx context.Context - execution context
			@param envelope Envelope - the stored envelope
			@returns the decrypted field value
	*/
	DecryptField(ctx context.Context, envelope Envelope) (string, error)
}

// fieldCodec implements FieldCodec
type fieldCodec struct {
	goutils.Component
	aead cipher.AEAD
}

/*
NewFieldCodec define new field codec

The key material is provided base64 encoded and must decode to exactly the
cipher key length. Anything else refuses to start rather than truncate or pad.

	@param ctx context.Context - execution context
	@param keyBase64 string - base64 encoded symmetric encryption key
	@returns codec instance
*/
func NewFieldCodec(_ context.Context, keyBase64 string) (FieldCodec, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("symmetric encryption key is not valid base64 [%w]", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf(
			"expected %d byte key, decoded %d bytes [%w]",
			chacha20poly1305.KeySize,
			len(key),
			ErrInvalidKeyLength,
		)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare AEAD [%w]", err)
	}

	logTags := log.Fields{"module": "encryption", "component": "field-codec"}

	return &fieldCodec{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		aead: aead,
	}, nil
}

/*
EncryptField encrypt one plain text field value

	@param ctx context.Context - execution context
	@param plainText string - the field value to encrypt
	@returns the envelope holding cipher text, nonce, and auth tag
*/
func (c *fieldCodec) EncryptField(_ context.Context, plainText string) (Envelope, error) {
	// Nonce must come from a CSPRNG and never be derived from content
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate encryption nonce [%w]", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plainText), nil)

	// Seal appends the auth tag after the cipher text
	tagAt := len(sealed) - c.aead.Overhead()
	return Envelope{
		CipherText: sealed[:tagAt:tagAt],
		Nonce:      nonce,
		AuthTag:    sealed[tagAt:],
	}, nil
}

/*
DecryptField decrypt one field envelope

	@param ctx context.Context - execution context
	@param envelope Envelope - the stored envelope
	@returns the decrypted field value
*/
func (c *fieldCodec) DecryptField(_ context.Context, envelope Envelope) (string, error) {
	if len(envelope.Nonce) != chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf(
			"expected %d byte nonce, envelope has %d bytes [%w]",
			chacha20poly1305.NonceSizeX,
			len(envelope.Nonce),
			ErrDecryptFailed,
		)
	}

	sealed := make([]byte, 0, len(envelope.CipherText)+len(envelope.AuthTag))
	sealed = append(sealed, envelope.CipherText...)
	sealed = append(sealed, envelope.AuthTag...)

	plainText, err := c.aead.Open(nil, envelope.Nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field [%w]", ErrDecryptFailed)
	}

	return string(plainText), nil
}

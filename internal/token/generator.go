// Package token derives the opaque correlation token handed to learners at
// LTI launch time.
//
// A token is a deterministic authenticated encryption of the launch's
// result-sourced-id: AES-256-GCM with the nonce taken from an HMAC of the
// plaintext. The same launch therefore always maps to the same token, and
// the token reveals nothing about the result-sourced-id without the key.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/lshigami/gradebridge/internal/apperr"
	"golang.org/x/crypto/hkdf"
)

const (
	encryptionInfo = "gradebridge token encryption v1"
	nonceInfo      = "gradebridge token nonce v1"
	keySize        = 32
)

// ErrEmptySecret is returned by NewGenerator when no server secret is configured.
var ErrEmptySecret = errors.New("token secret must not be empty")

// Generator turns result-sourced-ids into tokens. It is safe for concurrent use.
type Generator struct {
	aead     cipher.AEAD
	nonceKey []byte
}

// NewGenerator derives the encryption and nonce keys from secret.
func NewGenerator(secret string) (*Generator, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	encKey, err := deriveKey(secret, encryptionInfo)
	if err != nil {
		return nil, err
	}
	nonceKey, err := deriveKey(secret, nonceInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("create token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create token cipher: %w", err)
	}

	return &Generator{aead: aead, nonceKey: nonceKey}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return key, nil
}

// Generate returns the token for resultSourcedID.
func (g *Generator) Generate(resultSourcedID string) (string, error) {
	if resultSourcedID == "" {
		return "", apperr.New(apperr.KindInvalidInput,
			"cannot generate a token without a result sourced id: grading in edX will not be possible")
	}

	plaintext := []byte(resultSourcedID)
	mac := hmac.New(sha256.New, g.nonceKey)
	mac.Write(plaintext)
	nonce := make([]byte, g.aead.NonceSize())
	copy(nonce, mac.Sum(nil))

	sealed := g.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Package tokenization seals sensitive settings before they reach the
// ledger. Tokens are AES-GCM ciphertexts with a random nonce.
package tokenization

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// TokenPrefix marks a sealed value. Values without it are stored plain.
const TokenPrefix = "tok:"

var ErrInvalidToken = errors.New("invalid token")

// TokenizationService seals and opens values with a single key.
type TokenizationService struct {
	key []byte
}

// DeriveKey stretches a configured secret of any length into an AES-256 key.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// NewTokenizationService expects a 16, 24 or 32 byte key.
func NewTokenizationService(encryptionKey []byte) *TokenizationService {
	return &TokenizationService{
		key: encryptionKey,
	}
}

func (s *TokenizationService) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Tokenize encrypts value. Sealing the same value twice yields different tokens.
func (s *TokenizationService) Tokenize(value string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)
	return TokenPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Detokenize opens a token produced by Tokenize. A value without the token
// prefix is returned unchanged.
func (s *TokenizationService) Detokenize(token string) (string, error) {
	if !IsToken(token) {
		return token, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, TokenPrefix))
	if err != nil {
		return "", ErrInvalidToken
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidToken
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}

	return string(plaintext), nil
}

func IsToken(value string) bool {
	return strings.HasPrefix(value, TokenPrefix)
}

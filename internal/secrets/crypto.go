package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const (
	formatVersion = "v1"
	nonceSize     = 12
	tagSize       = 16
)

// ErrBadFormat is returned for values that are not v1:iv:tag:data strings.
var ErrBadFormat = errors.New("invalid encrypted value format")

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals value with AES-256-GCM and encodes it as
// "v1:<iv>:<tag>:<ciphertext>", each part standard base64.
func Encrypt(value string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}
	sealed := gcm.Seal(nil, iv, []byte(value), nil)
	data, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return strings.Join([]string{formatVersion, enc.EncodeToString(iv), enc.EncodeToString(tag), enc.EncodeToString(data)}, ":"), nil
}

// Decrypt reverses Encrypt. Tampered values fail authentication.
func Decrypt(s string, key []byte) (string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != formatVersion {
		return "", ErrBadFormat
	}
	enc := base64.StdEncoding
	iv, err := enc.DecodeString(parts[1])
	if err != nil || len(iv) != nonceSize {
		return "", ErrBadFormat
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", ErrBadFormat
	}
	data, err := enc.DecodeString(parts[3])
	if err != nil {
		return "", ErrBadFormat
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plain), nil
}

// LoadKey reads a base64 key file. A missing or empty file returns (nil, nil)
// so read-only callers can treat "no key" as "no secrets".
func LoadKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %s: %w", path, err)
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding key %s: %w", path, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key %s is %d bytes, want %d", path, len(key), KeySize)
	}
	return key, nil
}

// EnsureKey returns the key at path, generating a new random key (mode 0600,
// parent dir 0700) when none exists.
func EnsureKey(path string) ([]byte, error) {
	key, err := LoadKey(path)
	if err != nil || key != nil {
		return key, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating key dir: %w", err)
	}
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing key %s: %w", path, err)
	}
	return key, nil
}

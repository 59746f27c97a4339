// Package secret encrypts account credentials at rest.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cipher encrypts strings with AES-256-CBC. The key is the SHA-256 digest of
// a passphrase, so the passphrase itself never touches disk. Output format is
// "<ivHex>:<cipherHex>" with a fresh random IV per call.
type Cipher struct {
	key []byte
}

// New derives a cipher key from the given passphrase.
func New(passphrase string) *Cipher {
	sum := sha256.Sum256([]byte(passphrase))
	return &Cipher{key: sum[:]}
}

// Encrypt returns the PKCS#7-padded CBC ciphertext of plaintext, prefixed
// with the hex-encoded IV and a ":" delimiter.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It reports false for anything it cannot recover:
// missing delimiter, bad hex, truncated blocks, or padding damage. Callers
// must treat that as "secret unrecoverable", not as an empty string.
func (c *Cipher) Decrypt(encrypted string) (string, bool) {
	ivHex, dataHex, found := strings.Cut(encrypted, ":")
	if !found {
		return "", false
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", false
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", false
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", false
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	plain, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return "", false
	}
	return string(plain), true
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, false
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}

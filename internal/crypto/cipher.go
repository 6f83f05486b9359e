package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const staticKeyInfo = "inventario-static-blob-key-v1"

// EmbeddedSecret keys the default snapshot cipher. See the package
// documentation for what this does and does not protect against.
var EmbeddedSecret = []byte("Servyre2026")

var (
	ErrInvalidCipherInput   = errors.New("invalid cipher input")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrCipherClosed         = errors.New("cipher closed")
)

// BlobCipher seals and opens whole persisted blobs. Implementations must
// detect any modification of the sealed bytes.
type BlobCipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// StaticCipher is an XChaCha20-Poly1305 BlobCipher whose key is derived
// once from a fixed secret. Sealed output is nonce || ciphertext.
type StaticCipher struct {
	key *memguard.LockedBuffer
	aad []byte
}

func NewStaticCipher(secret, aad []byte) (*StaticCipher, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret must not be empty", ErrInvalidCipherInput)
	}
	raw, err := DeriveHKDFSHA256(secret, nil, []byte(staticKeyInfo), chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("new static cipher: %w", err)
	}
	return NewKeyedCipher(raw, aad)
}

// NewKeyedCipher takes ownership of key and wipes the caller's copy.
func NewKeyedCipher(key, aad []byte) (*StaticCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		memguard.WipeBytes(key)
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidCipherInput, chacha20poly1305.KeySize)
	}
	return &StaticCipher{
		key: memguard.NewBufferFromBytes(key),
		aad: append([]byte(nil), aad...),
	}, nil
}

func (c *StaticCipher) Seal(plaintext []byte) ([]byte, error) {
	if c == nil || c.key == nil || !c.key.IsAlive() {
		return nil, ErrCipherClosed
	}
	nonce, err := randomNonce(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	ciphertext, err := sealX(c.key.Bytes(), nonce, plaintext, c.aad)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

func (c *StaticCipher) Open(sealed []byte) ([]byte, error) {
	if c == nil || c.key == nil || !c.key.IsAlive() {
		return nil, ErrCipherClosed
	}
	if len(sealed) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: sealed blob too short", ErrInvalidCipherInput)
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	return openX(c.key.Bytes(), nonce, sealed[chacha20poly1305.NonceSizeX:], c.aad)
}

// Destroy wipes the key. Seal and Open fail afterwards.
func (c *StaticCipher) Destroy() {
	if c == nil || c.key == nil {
		return
	}
	c.key.Destroy()
}

// DeriveHKDFSHA256 expands ikm into length bytes of key material.
func DeriveHKDFSHA256(ikm, salt, info []byte, length int) ([]byte, error) {
	if len(ikm) == 0 {
		return nil, fmt.Errorf("%w: ikm must not be empty", ErrInvalidCipherInput)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be > 0", ErrInvalidCipherInput)
	}

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, info), out); err != nil {
		return nil, fmt.Errorf("derive hkdf-sha256 output: %w", err)
	}
	return out, nil
}

func sealX(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newXAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func openX(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := newXAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return plaintext, nil
}

type xaead interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

func newXAEAD(key, nonce []byte) (xaead, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidCipherInput, chacha20poly1305.KeySize)
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", ErrInvalidCipherInput, chacha20poly1305.NonceSizeX)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("construct xchacha20-poly1305: %w", err)
	}
	return aead, nil
}

func randomNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// Package credvault caches request credentials and OAuth2 tokens, encrypting
// secret material at rest. XChaCha20-Poly1305 is the recommended default.
package credvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

type EncryptionType int8

const (
	EncryptionNone              EncryptionType = 0
	EncryptionXChaCha20Poly1305 EncryptionType = 1
	EncryptionAES256GCM         EncryptionType = 2
)

// KeySize is the required size for the master encryption key (256-bit).
const KeySize = 32

var (
	ErrInvalidKeySize     = errors.New("credvault: key must be 32 bytes")
	ErrCiphertextTooShort = errors.New("credvault: ciphertext too short")
	ErrUnsupportedType    = errors.New("credvault: unsupported encryption type")

	// defaultKey is a static all-zeros key used when no master key is
	// configured: obfuscation, not security.
	defaultKey = [KeySize]byte{}
)

// Vault handles encryption and decryption of credential secrets.
type Vault struct {
	masterKey []byte
}

// NewDefaultVault creates a Vault with the static all-zeros key.
func NewDefaultVault() *Vault {
	return &Vault{masterKey: defaultKey[:]}
}

// NewVault creates a Vault with the given 32-byte master key.
func NewVault(masterKey []byte) (*Vault, error) {
	if len(masterKey) != KeySize {
		return nil, ErrInvalidKeySize
	}
	keyCopy := make([]byte, KeySize)
	copy(keyCopy, masterKey)
	return &Vault{masterKey: keyCopy}, nil
}

func (v *Vault) Encrypt(plaintext []byte, encType EncryptionType) ([]byte, error) {
	switch encType {
	case EncryptionNone:
		return plaintext, nil
	case EncryptionXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(v.masterKey)
		if err != nil {
			return nil, fmt.Errorf("credvault: failed to create chacha20 cipher: %w", err)
		}
		return seal(aead, plaintext)
	case EncryptionAES256GCM:
		aead, err := v.gcm()
		if err != nil {
			return nil, err
		}
		return seal(aead, plaintext)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, encType)
	}
}

func (v *Vault) Decrypt(ciphertext []byte, encType EncryptionType) ([]byte, error) {
	switch encType {
	case EncryptionNone:
		return ciphertext, nil
	case EncryptionXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(v.masterKey)
		if err != nil {
			return nil, fmt.Errorf("credvault: failed to create chacha20 cipher: %w", err)
		}
		return open(aead, ciphertext)
	case EncryptionAES256GCM:
		aead, err := v.gcm()
		if err != nil {
			return nil, err
		}
		return open(aead, ciphertext)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, encType)
	}
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.masterKey)
	if err != nil {
		return nil, fmt.Errorf("credvault: failed to create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credvault: failed to create gcm: %w", err)
	}
	return aead, nil
}

// seal prepends the nonce: [nonce][ciphertext+tag].
func seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("credvault: failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(aead cipher.AEAD, ciphertext []byte) ([]byte, error) {
	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("credvault: decryption failed: %w", err)
	}
	return plaintext, nil
}

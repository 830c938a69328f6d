package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnknownKeyVersion = errors.New("key version not found")
	ErrKeySize           = errors.New("key must be 32 bytes")
	ErrInvalidNonce      = errors.New("invalid nonce size")
)

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func Encrypt(plaintext []byte, keyVersion string, keysMap map[string][]byte) (ciphertext, nonce []byte, err error) {
	key, ok := keysMap[keyVersion]
	if !ok {
		return nil, nil, ErrUnknownKeyVersion
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func Decrypt(ciphertext, nonce []byte, keyVersion string, keysMap map[string][]byte) ([]byte, error) {
	key, ok := keysMap[keyVersion]
	if !ok {
		return nil, ErrUnknownKeyVersion
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrInvalidNonce
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// ParseKeysEnv lê "v1:<base64>,v2:<base64>". Aceita base64 com ou sem padding.
func ParseKeysEnv(env string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		ver, b64, ok := strings.Cut(part, ":")
		ver = strings.TrimSpace(ver)
		if !ok || ver == "" {
			continue
		}
		key, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(b64), "="))
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", ver, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %s must be 32 bytes for AES-256 (got %d)", ver, len(key))
		}
		out[ver] = key
	}
	return out, nil
}

// Keyring cifra com a versão corrente e decifra com qualquer versão conhecida.
type Keyring struct {
	keys    map[string][]byte
	current string
}

// NewKeyring monta o keyring a partir de DATA_ENCRYPTION_KEYS. Sem chaves, o keyring
// fica desativado (Enabled false) e os dados são gravados em texto.
func NewKeyring(env, current string) (*Keyring, error) {
	keys, err := ParseKeysEnv(env)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		if _, ok := keys[current]; !ok {
			return nil, fmt.Errorf("current key version %q: %w", current, ErrUnknownKeyVersion)
		}
	}
	return &Keyring{keys: keys, current: current}, nil
}

func (k *Keyring) Enabled() bool { return k != nil && len(k.keys) > 0 }

func (k *Keyring) Seal(plaintext []byte) (ciphertext, nonce []byte, version string, err error) {
	ciphertext, nonce, err = Encrypt(plaintext, k.current, k.keys)
	return ciphertext, nonce, k.current, err
}

func (k *Keyring) Open(ciphertext, nonce []byte, version string) ([]byte, error) {
	return Decrypt(ciphertext, nonce, version, k.keys)
}

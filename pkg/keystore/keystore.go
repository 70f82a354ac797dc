package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the encryption key from the master secret
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

var (
	ErrInvalidSecret     = errors.New("master secret must not be empty")
	ErrInvalidCiphertext = errors.New("invalid key ciphertext")
)

// Keystore encrypts and decrypts wallet private keys with AES-GCM. The AES
// key is derived once from an operator-supplied master secret via scrypt;
// plaintext key material exists only transiently in memory and is never
// logged or persisted.
type Keystore struct {
	aead cipher.AEAD
}

// New derives the encryption key from the master secret and salt
func New(masterSecret, salt string) (*Keystore, error) {
	if masterSecret == "" {
		return nil, ErrInvalidSecret
	}

	key, err := scrypt.Key([]byte(masterSecret), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Keystore{aead: aead}, nil
}

// EncryptKey seals a secp256k1 private key into a hex blob for storage
func (k *Keystore) EncryptKey(key *ecdsa.PrivateKey) (string, error) {
	plaintext := ethcrypto.FromECDSA(key)

	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := k.aead.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), nil
}

// DecryptKey opens a stored blob back into a usable private key
func (k *Keystore) DecryptKey(encrypted string) (*ecdsa.PrivateKey, error) {
	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(ciphertext) < k.aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertext[:k.aead.NonceSize()], ciphertext[k.aead.NonceSize():]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	return ethcrypto.ToECDSA(plaintext)
}

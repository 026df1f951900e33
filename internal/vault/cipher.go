// Package vault persists each user's document tree as an
// authenticated-encryption envelope on disk, and transparently migrates the
// older plaintext format on first read.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"noveldesk/internal/novel"
)

const recordAlgorithm = "aes-256-gcm"

// keyContext binds derived keys to this use so the same operator secret can
// never double as a key elsewhere.
const keyContext = "noveldesk/vault/aes-256-gcm/v1"

// Record is the tagged at-rest envelope. Its Encrypted marker and field set
// distinguish it from the legacy format, which was the bare document JSON.
type Record struct {
	Encrypted  bool      `json:"encrypted"`
	Algorithm  string    `json:"algorithm"`
	IV         string    `json:"iv"`
	Tag        string    `json:"tag"`
	Ciphertext string    `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsEncryptedRecord reports whether the envelope carries all fields the
// decrypt path needs. Anything less is treated as legacy plaintext.
func (r Record) IsEncryptedRecord() bool {
	return r.Encrypted && r.Algorithm != "" && r.IV != "" && r.Tag != "" && r.Ciphertext != ""
}

var ErrCorruptRecord = errors.New("corrupt record")

type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 32-byte AES key from the configured secret with
// HKDF-SHA256. Raw operator input is never used as key material directly.
func NewCipher(secret string) (*Cipher, error) {
	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyContext))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals a tree into an envelope with a nonce generated fresh for
// this write. Reusing a nonce under the same GCM key breaks both
// confidentiality and authenticity, so no nonce ever leaves this function
// for a second use.
func (c *Cipher) Encrypt(tree *novel.DocumentTree) (Record, error) {
	plaintext, err := json.Marshal(tree)
	if err != nil {
		return Record{}, fmt.Errorf("marshal tree: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Record{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - c.aead.Overhead()

	return Record{
		Encrypted:  true,
		Algorithm:  recordAlgorithm,
		IV:         hex.EncodeToString(nonce),
		Tag:        hex.EncodeToString(sealed[split:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// Decrypt opens an envelope and decodes the tree. Tag verification failure
// aborts the whole read; partial or corrupted plaintext is never returned.
func (c *Cipher) Decrypt(record Record) (*novel.DocumentTree, error) {
	if record.Algorithm != recordAlgorithm {
		return nil, ErrCorruptRecord
	}
	nonce, err := hex.DecodeString(record.IV)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return nil, ErrCorruptRecord
	}
	tag, err := hex.DecodeString(record.Tag)
	if err != nil || len(tag) != c.aead.Overhead() {
		return nil, ErrCorruptRecord
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.Ciphertext)
	if err != nil {
		return nil, ErrCorruptRecord
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrCorruptRecord
	}

	var tree novel.DocumentTree
	if err := json.Unmarshal(plaintext, &tree); err != nil {
		return nil, ErrCorruptRecord
	}
	return &tree, nil
}

package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"noveldesk/internal/identity"
	"noveldesk/internal/novel"
)

// One file per identity, named by the sanitized email. Owner-only
// permissions are defense in depth behind authentication and encryption.
const (
	dirMode  = 0o700
	fileMode = 0o600
)

type Store struct {
	dir    string
	cipher *Cipher

	// OnMigrate is invoked once per legacy plaintext file rewritten as an
	// encrypted record. Wired to a metrics counter by the caller.
	OnMigrate func()
}

func NewStore(dir string, cipher *Cipher) (*Store, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.Chmod(dir, dirMode); err != nil {
		return nil, fmt.Errorf("restrict data dir: %w", err)
	}
	return &Store{dir: dir, cipher: cipher}, nil
}

// SafeKey maps an email to a filesystem-safe token. Everything outside
// alphanumerics, '@', '.' and '-' becomes '_', which closes off path
// traversal via crafted emails.
func SafeKey(email string) string {
	out := []byte(email)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '@', c == '.', c == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func (s *Store) path(id identity.Identity) string {
	return filepath.Join(s.dir, SafeKey(id.Email)+".json")
}

// Load returns the identity's document tree, creating the default tree on
// first contact and migrating legacy plaintext files to encrypted records
// in place.
func (s *Store) Load(id identity.Identity) (*novel.DocumentTree, error) {
	raw, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		tree := novel.DefaultTree()
		if err := s.Save(id, tree); err != nil {
			return nil, err
		}
		return tree, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err == nil && record.IsEncryptedRecord() {
		tree, err := s.cipher.Decrypt(record)
		if err != nil {
			return nil, err
		}
		novel.Normalize(tree)
		return tree, nil
	}

	// Not an encrypted envelope: either a legacy plaintext tree or garbage.
	tree, err := novel.Parse(raw)
	if err != nil {
		return nil, ErrCorruptRecord
	}
	novel.Normalize(tree)
	if err := s.Save(id, tree); err != nil {
		return nil, err
	}
	if s.OnMigrate != nil {
		s.OnMigrate()
	}
	return tree, nil
}

// Save encrypts and overwrites the identity's record. Single writer per
// user file is assumed; the write goes through a temp file and rename so a
// crash mid-write cannot leave a half-written record behind.
func (s *Store) Save(id identity.Identity, tree *novel.DocumentTree) error {
	record, err := s.cipher.Encrypt(tree)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	path := s.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, fileMode); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Chmod(tmp, fileMode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("restrict record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

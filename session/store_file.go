package session

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	sessionFileName = "session.bin"
	clinicFileName  = "active_clinic"

	saltLength = 16
)

var _ Store = (*FileStore)(nil)

// FileStore persists the session under a data folder, sealed at rest with a
// scrypt-derived chacha20poly1305 key. The active-clinic id is not a secret
// and is stored as plain text alongside it.
type FileStore struct {
	folder string
	secret string
}

// NewFileStore creates the data folder if needed. secret may be empty, in
// which case a fixed application key is used; the sealing then only protects
// against casual reads, not a local attacker.
func NewFileStore(folder, secret string) (*FileStore, error) {
	if folder == "" {
		return nil, fmt.Errorf("[NewFileStore] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("[NewFileStore] create folder: %w", err)
	}
	if secret == "" {
		secret = "dentatrack-console"
	}
	return &FileStore{folder: folder, secret: secret}, nil
}

func (fs *FileStore) Save(s *Session) error {
	if s == nil {
		return fmt.Errorf("[FileStore.Save] nil session")
	}

	plaintext, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("[FileStore.Save] marshal session: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("[FileStore.Save] generate salt: %w", err)
	}

	aead, err := fs.aead(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[FileStore.Save] generate nonce: %w", err)
	}

	blob := append(salt, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, nil)

	if err := os.WriteFile(fs.path(sessionFileName), blob, 0o600); err != nil {
		return fmt.Errorf("[FileStore.Save] write session file: %w", err)
	}
	return nil
}

func (fs *FileStore) Load() (*Session, error) {
	blob, err := os.ReadFile(fs.path(sessionFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore.Load] read session file: %w", err)
	}

	if len(blob) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("[FileStore.Load] session file truncated")
	}
	salt := blob[:saltLength]
	nonce := blob[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := blob[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := fs.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("[FileStore.Load] unseal session: %w", err)
	}

	s := &Session{}
	if err := json.Unmarshal(plaintext, s); err != nil {
		return nil, fmt.Errorf("[FileStore.Load] unmarshal session: %w", err)
	}
	return s, nil
}

func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path(sessionFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileStore.Clear] remove session file: %w", err)
	}
	return nil
}

func (fs *FileStore) SaveActiveClinic(id string) error {
	if err := os.WriteFile(fs.path(clinicFileName), []byte(id), 0o600); err != nil {
		return fmt.Errorf("[FileStore.SaveActiveClinic] write: %w", err)
	}
	return nil
}

func (fs *FileStore) LoadActiveClinic() (string, error) {
	data, err := os.ReadFile(fs.path(clinicFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[FileStore.LoadActiveClinic] read: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (fs *FileStore) ClearActiveClinic() error {
	if err := os.Remove(fs.path(clinicFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileStore.ClearActiveClinic] remove: %w", err)
	}
	return nil
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.folder, name)
}

func (fs *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(fs.secret), salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("[FileStore] derive key: %w", err)
	}
	c, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[FileStore] init cipher: %w", err)
	}
	return c, nil
}

package session

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// Durable storage keys. The token bundle lives under a single fixed name so
// a restart can rehydrate without re-authenticating; per-user sync markers
// share recognizable prefixes so sign-out can sweep them.
const (
	TokenBundleKey     = "atelier_session"
	AuthSyncPrefix     = "auth_sync_"
	ProfileFetchPrefix = "profile_fetch_"
)

// Storage is the durable client-side key-value store. A single instance is
// injected into whichever component needs session state; there is no
// ad hoc key-string coupling between independent consumers.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Keys() []string
}

// TokenBundle is the persisted session. ExpiresAt is epoch milliseconds
// (the wire session carries seconds; conversion happens on save/load).
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// LoadTokenBundle reads and decodes the stored bundle. A corrupt value is
// deleted and treated as absent.
func LoadTokenBundle(s Storage) (*TokenBundle, bool) {
	raw, ok := s.Get(TokenBundleKey)
	if !ok {
		return nil, false
	}
	var b TokenBundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		_ = s.Delete(TokenBundleKey)
		return nil, false
	}
	return &b, true
}

// SaveTokenBundle encodes and stores the bundle.
func SaveTokenBundle(s Storage, b *TokenBundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.Set(TokenBundleKey, string(raw))
}

// ClearSessionKeys removes the token bundle and every key carrying a
// session-sync or profile-fetch prefix.
func ClearSessionKeys(s Storage) {
	_ = s.Delete(TokenBundleKey)
	for _, key := range s.Keys() {
		if strings.HasPrefix(key, AuthSyncPrefix) || strings.HasPrefix(key, ProfileFetchPrefix) {
			_ = s.Delete(key)
		}
	}
}

// MemoryStorage is an in-process Storage, used in tests and as the default
// when no persistence path is configured.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// FileStorage persists the key-value map as a JSON file, the moral
// equivalent of the browser's localStorage: shared, synchronous, and not
// scoped per consumer, so concurrent processes can race on writes.
type FileStorage struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func NewFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		// Corrupt store: start over rather than fail to boot.
		fs.data = make(map[string]string)
	}
	return fs, nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.persistLocked()
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return f.persistLocked()
}

func (f *FileStorage) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys
}

func (f *FileStorage) persistLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o600)
}

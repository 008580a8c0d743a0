package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/expensetrack/expensetrack/internal/model"
)

// TokenStore holds the client's token pair. Each token expires on its own
// schedule and is reported absent once expired.
type TokenStore interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	SetTokens(pair model.TokenPair) error
	SetAccessToken(token string) error
	Clear() error
}

// credentials is the stored form of a token pair. A zero expiry never expires.
type credentials struct {
	AccessToken      string    `yaml:"access_token,omitempty"`
	AccessExpiresAt  time.Time `yaml:"access_expires_at,omitempty"`
	RefreshToken     string    `yaml:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time `yaml:"refresh_expires_at,omitempty"`
}

func live(token string, expiresAt, now time.Time) (string, bool) {
	if token == "" {
		return "", false
	}
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return "", false
	}
	return token, true
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// lifetimes carries per-token TTLs and the clock.
type lifetimes struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (l lifetimes) setPair(c *credentials, pair model.TokenPair) {
	now := l.now()
	c.AccessToken = pair.AccessToken
	c.AccessExpiresAt = expiry(now, l.accessTTL)
	c.RefreshToken = pair.RefreshToken
	c.RefreshExpiresAt = expiry(now, l.refreshTTL)
}

func (l lifetimes) setAccess(c *credentials, token string) {
	c.AccessToken = token
	c.AccessExpiresAt = expiry(l.now(), l.accessTTL)
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	creds credentials
	lifetimes
}

// NewMemoryStore creates an empty store. A non-positive TTL never expires.
func NewMemoryStore(accessTTL, refreshTTL time.Duration) *MemoryStore {
	return &MemoryStore{lifetimes: lifetimes{accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}}
}

func (s *MemoryStore) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return live(s.creds.AccessToken, s.creds.AccessExpiresAt, s.now())
}

func (s *MemoryStore) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return live(s.creds.RefreshToken, s.creds.RefreshExpiresAt, s.now())
}

func (s *MemoryStore) SetTokens(pair model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPair(&s.creds, pair)
	return nil
}

func (s *MemoryStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAccess(&s.creds, token)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = credentials{}
	return nil
}

// FileStore persists tokens as YAML readable only by the owner.
type FileStore struct {
	mu    sync.Mutex
	path  string
	creds credentials
	lifetimes
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string, accessTTL, refreshTTL time.Duration) (*FileStore, error) {
	s := &FileStore{
		path:      path,
		lifetimes: lifetimes{accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return live(s.creds.AccessToken, s.creds.AccessExpiresAt, s.now())
}

func (s *FileStore) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return live(s.creds.RefreshToken, s.creds.RefreshExpiresAt, s.now())
}

func (s *FileStore) SetTokens(pair model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.creds
	s.setPair(&next, pair)
	return s.save(next)
}

func (s *FileStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.creds
	s.setAccess(&next, token)
	return s.save(next)
}

// Clear forgets both tokens and removes the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = credentials{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// save writes creds atomically and only then adopts them.
func (s *FileStore) save(creds credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}

	s.creds = creds
	return nil
}

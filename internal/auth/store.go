package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"staybook/internal/domain"
)

// Store persists the credential pair.
type Store interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, c domain.Credentials) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu sync.RWMutex
	c  domain.Credentials
}

func NewMemoryStore(c domain.Credentials) *MemoryStore { return &MemoryStore{c: c} }

func (m *MemoryStore) Load(context.Context) (domain.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.c, nil
}

func (m *MemoryStore) Save(_ context.Context, c domain.Credentials) error {
	m.mu.Lock()
	m.c = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.c = domain.Credentials{}
	m.mu.Unlock()
	return nil
}

// FileStore keeps credentials in a YAML file readable only by the owner.
// Other top-level keys in the file are preserved.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// DefaultCredentialsPath returns ~/.config/staybook/credentials.yaml.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "staybook", "credentials.yaml"), nil
}

type credentialsFile struct {
	Credentials domain.Credentials `yaml:"credentials"`
}

func (f *FileStore) Load(context.Context) (domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Credentials{}, nil
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}
	var cf credentialsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return domain.Credentials{}, fmt.Errorf("parsing credentials: %w", err)
	}
	return cf.Credentials, nil
}

func (f *FileStore) Save(_ context.Context, c domain.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	doc := map[string]any{}
	if old, err := os.ReadFile(f.path); err == nil {
		_ = yaml.Unmarshal(old, &doc)
		if doc == nil {
			doc = map[string]any{}
		}
	}
	doc["credentials"] = c
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

// FallbackStore reads the in-memory copy first and falls back to the
// persistent store when memory has not been hydrated yet.
type FallbackStore struct {
	mem     *MemoryStore
	durable Store
}

func NewFallbackStore(durable Store) *FallbackStore {
	return &FallbackStore{mem: NewMemoryStore(domain.Credentials{}), durable: durable}
}

func (s *FallbackStore) Load(ctx context.Context) (domain.Credentials, error) {
	if c, _ := s.mem.Load(ctx); !c.Empty() {
		return c, nil
	}
	c, err := s.durable.Load(ctx)
	if err != nil {
		return domain.Credentials{}, err
	}
	_ = s.mem.Save(ctx, c)
	return c, nil
}

func (s *FallbackStore) Save(ctx context.Context, c domain.Credentials) error {
	if err := s.durable.Save(ctx, c); err != nil {
		return err
	}
	return s.mem.Save(ctx, c)
}

func (s *FallbackStore) Clear(ctx context.Context) error {
	_ = s.mem.Clear(ctx)
	return s.durable.Clear(ctx)
}

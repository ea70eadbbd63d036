package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"multipost/domain/model"
)

// FileCredentialRepository keeps one JSON document per platform under dir
// (tokens/instagram.json, tokens/youtube.json).
type FileCredentialRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewFileCredentialRepository(dir string) *FileCredentialRepository {
	return &FileCredentialRepository{dir: dir}
}

func (r *FileCredentialRepository) path(platform model.Platform) string {
	return filepath.Join(r.dir, string(platform)+".json")
}

func (r *FileCredentialRepository) Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(platform))
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s credential: %w", platform, err)
	}
	var cred model.PlatformCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode %s credential: %w", platform, err)
	}
	if cred.Platform == "" {
		cred.Platform = platform
	}
	return &cred, nil
}

func (r *FileCredentialRepository) Put(ctx context.Context, cred *model.PlatformCredential) error {
	if cred.Platform == "" {
		return errors.New("credential platform is required")
	}
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSONAtomic(r.path(cred.Platform), cred)
}

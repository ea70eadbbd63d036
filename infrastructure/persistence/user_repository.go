package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/logger"

	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type usersDocument struct {
	Users []model.User `json:"users"`
}

// UserRepository reads operators from a JSON file holding bcrypt hashes.
type UserRepository struct {
	path string
	mu   sync.RWMutex
}

func NewUserRepository(path string) repository.IUser { return &UserRepository{path: path} }

// EnsureUsersFile creates the users file with a single admin account when it
// does not exist yet.
func EnsureUsersFile(path, defaultPassword string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	doc := usersDocument{Users: []model.User{{
		ID:        "1",
		UserName:  "admin",
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
	}}}
	if err := writeJSONAtomic(path, doc); err != nil {
		return err
	}
	logger.GetLogger().WithField("file", path).Info("Users file created with default user admin")
	return nil
}

func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var u model.User
	data, err := os.ReadFile(r.path)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("read users file failed")
		return u, err
	}
	var doc usersDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.GetLogger().WithField("error", err).Error("decode users file failed")
		return u, err
	}
	for _, candidate := range doc.Users {
		if candidate.UserName == userName {
			return candidate, nil
		}
	}
	return u, ErrUserNotFound
}

package repository

import (
	"context"

	"multipost/domain/model"
)

// ICredentialStore persists the latest token payload per platform. Put
// overwrites any previous value wholesale.
type ICredentialStore interface {
	Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error)
	Put(ctx context.Context, cred *model.PlatformCredential) error
}

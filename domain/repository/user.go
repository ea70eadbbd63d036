package repository

import (
	"context"

	"multipost/domain/model"
)

type IUser interface {
	GetByUserName(ctx context.Context, userName string) (model.User, error)
}

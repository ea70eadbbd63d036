package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/logger"
	"multipost/infrastructure/utils"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) (*dto.LoginResponse, error)
}

type UserUsecase struct {
	userRepository repository.IUser
	secretKey      string
	ttl            time.Duration
}

func NewUserUsecase(userRepository repository.IUser, secretKey string, ttl time.Duration) IUserUsecase {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UserUsecase{userRepository: userRepository, secretKey: secretKey, ttl: ttl}
}

func (u *UserUsecase) Login(ctx context.Context, req model.ReqLogin) (*dto.LoginResponse, error) {
	if req.UserName == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	user, err := u.userRepository.GetByUserName(ctx, req.UserName)
	if err != nil {
		logger.GetLogger().WithField("username", req.UserName).WithField("error", err).Info("Login rejected")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.GetLogger().WithField("username", req.UserName).Info("Login rejected: password mismatch")
		return nil, ErrInvalidCredentials
	}

	now := utils.GetCurrentTime()
	claims := model.UserClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(u.ttl).Unix(),
		},
		UserName: user.UserName,
	}
	token, err := utils.GenerateToken(claims, u.secretKey)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		OK:      true,
		User:    dto.SessionUser{ID: user.ID, UserName: user.UserName},
		Token:   token,
		Message: "Login successful",
	}, nil
}

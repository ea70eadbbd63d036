package usecase

import (
	"context"
	"errors"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
)

// ErrInvalidState is returned when an OAuth callback carries an unknown or
// expired state.
var ErrInvalidState = errors.New("invalid or expired oauth state")

type InstagramLinker interface {
	AuthURL(state string) (string, error)
	Callback(ctx context.Context, code string) (*model.PlatformCredential, error)
}

type YouTubeLinker interface {
	AppMissing() []string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.PlatformCredential, error)
}

type ILinkUsecase interface {
	InstagramAuthURL() (string, error)
	InstagramCallback(ctx context.Context, code, state string) (*model.PlatformCredential, error)
	YouTubeAuthURL() (string, error)
	YouTubeCallback(ctx context.Context, code, state string) (*model.PlatformCredential, error)
}

type linkUsecase struct {
	instagram InstagramLinker
	youtube   YouTubeLinker
	states    *stateStore
}

func NewLinkUsecase(instagram InstagramLinker, youtube YouTubeLinker) ILinkUsecase {
	return &linkUsecase{instagram: instagram, youtube: youtube, states: newStateStore(oauthStateTTL)}
}

func (u *linkUsecase) InstagramAuthURL() (string, error) {
	state := u.states.Issue()
	return u.instagram.AuthURL(state)
}

func (u *linkUsecase) InstagramCallback(ctx context.Context, code, state string) (*model.PlatformCredential, error) {
	if !u.states.Consume(state) {
		return nil, ErrInvalidState
	}
	cred, err := u.instagram.Callback(ctx, code)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("pageId", model.StringValue(cred.PageID)).
		WithField("accountId", model.StringValue(cred.AccountID)).
		Info("Instagram account linked")
	return cred, nil
}

func (u *linkUsecase) YouTubeAuthURL() (string, error) {
	if missing := u.youtube.AppMissing(); len(missing) > 0 {
		return "", &model.ConfigError{Platform: model.PlatformYouTube, Missing: missing}
	}
	return u.youtube.AuthCodeURL(u.states.Issue()), nil
}

func (u *linkUsecase) YouTubeCallback(ctx context.Context, code, state string) (*model.PlatformCredential, error) {
	if !u.states.Consume(state) {
		return nil, ErrInvalidState
	}
	cred, err := u.youtube.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().Info("YouTube refresh token stored")
	return cred, nil
}

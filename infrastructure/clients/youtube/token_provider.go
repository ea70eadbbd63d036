package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"

	"golang.org/x/oauth2"
)

const connectHint = "Connect YouTube through /auth/youtube/url or set YT_REFRESH_TOKEN"

// TokenProvider supplies OAuth credentials for the YouTube Data API. The
// long-lived refresh token comes from configuration first, then from the
// credential store written by the OAuth callback.
type TokenProvider struct {
	cfg   configuration.YouTube
	store repository.ICredentialStore
}

func NewTokenProvider(cfg configuration.YouTube, store repository.ICredentialStore) *TokenProvider {
	return &TokenProvider{cfg: cfg, store: store}
}

// RefreshToken resolves the refresh credential or returns a ConfigError.
func (p *TokenProvider) RefreshToken(ctx context.Context) (string, error) {
	if p.cfg.RefreshToken != "" {
		return p.cfg.RefreshToken, nil
	}
	if p.store != nil {
		cred, err := p.store.Get(ctx, model.PlatformYouTube)
		switch {
		case err == nil && cred.RefreshToken != "":
			return cred.RefreshToken, nil
		case err != nil && !errors.Is(err, model.ErrCredentialNotFound):
			logger.GetLogger().WithField("error", err).Warn("Failed to read stored YouTube credential")
		}
	}
	return "", &model.ConfigError{
		Platform: model.PlatformYouTube,
		Missing:  []string{"YT_REFRESH_TOKEN"},
		Hint:     connectHint,
	}
}

func (p *TokenProvider) source(ctx context.Context) (oauth2.TokenSource, error) {
	if missing := p.cfg.Missing(false); len(missing) > 0 {
		return nil, &model.ConfigError{Platform: model.PlatformYouTube, Missing: missing}
	}
	refresh, err := p.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-1 * time.Minute), // Force refresh on first use
	}
	return p.cfg.OAuth2Config().TokenSource(ctx, token), nil
}

// Token performs a refresh grant and returns the short-lived access token.
func (p *TokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	src, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError(err)
	}
	return tok, nil
}

// AuthCodeURL builds the consent URL. Offline access with forced consent makes
// Google return a refresh token every time.
func (p *TokenProvider) AuthCodeURL(state string) string {
	return p.cfg.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code and stores the resulting refresh token.
func (p *TokenProvider) Exchange(ctx context.Context, code string) (*model.PlatformCredential, error) {
	if missing := p.cfg.Missing(false); len(missing) > 0 {
		return nil, &model.ConfigError{Platform: model.PlatformYouTube, Missing: missing}
	}
	tok, err := p.cfg.OAuth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, tokenError(err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("google returned no refresh token; revoke the app access and retry")
	}
	now := time.Now().UTC()
	expiry := tok.Expiry
	cred := &model.PlatformCredential{
		Platform:     model.PlatformYouTube,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    &expiry,
		Scopes:       p.cfg.OAuth2Config().Scopes[0],
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("store youtube credential: %w", err)
	}
	return cred, nil
}

func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &model.VendorError{
			Platform:   model.PlatformYouTube,
			Operation:  "token",
			StatusCode: status,
			Body:       retrieveErr.Body,
		}
	}
	return fmt.Errorf("youtube token refresh: %w", err)
}

// AppMissing lists the OAuth client settings needed to start a link flow.
func (p *TokenProvider) AppMissing() []string {
	return p.cfg.Missing(false)
}

package instagram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"

	"golang.org/x/oauth2"
)

var (
	ErrNoPages       = errors.New("no Facebook pages found for this user")
	ErrNoLinkedPages = errors.New("no page with a linked Instagram professional account was found; check the link in the Instagram/Facebook settings")
)

// Linker runs the Facebook login flow that links a page and its Instagram
// business account.
type Linker struct {
	cfg   configuration.Instagram
	graph *GraphClient
	store repository.ICredentialStore
	now   func() time.Time
}

func NewLinker(cfg configuration.Instagram, graph *GraphClient, store repository.ICredentialStore) *Linker {
	return &Linker{cfg: cfg, graph: graph, store: store, now: time.Now}
}

func (l *Linker) appConfigError() error {
	if missing := l.cfg.AppMissing(); len(missing) > 0 {
		return &model.ConfigError{
			Platform: model.PlatformInstagram,
			Missing:  missing,
			Hint:     "configure the Facebook app before linking Instagram",
		}
	}
	return nil
}

// AuthURL returns the Facebook login dialog URL for state.
func (l *Linker) AuthURL(state string) (string, error) {
	if err := l.appConfigError(); err != nil {
		return "", err
	}
	return l.cfg.OAuth2Config().AuthCodeURL(state), nil
}

// Callback exchanges code for a long-lived token, picks the first page with a
// linked Instagram business account and stores it, replacing any prior link.
func (l *Linker) Callback(ctx context.Context, code string) (*model.PlatformCredential, error) {
	if err := l.appConfigError(); err != nil {
		return nil, err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, l.graph.HTTPClient())
	short, err := l.cfg.OAuth2Config().Exchange(exchangeCtx, code)
	if err != nil {
		return nil, oauthError(err)
	}
	long, err := l.graph.ExchangeLongLived(ctx, l.cfg.AppID, l.cfg.AppSecret, short.AccessToken)
	if err != nil {
		return nil, err
	}

	pages, err := l.graph.ListPages(ctx, long.AccessToken)
	if err != nil {
		return nil, err
	}
	page, details, err := l.selectPage(ctx, pages)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	name := details.Name
	if name == "" {
		name = page.Name
	}
	pageID := page.ID
	accountID := details.InstagramBusinessAccount.ID
	cred := &model.PlatformCredential{
		Platform:        model.PlatformInstagram,
		AccessToken:     page.AccessToken,
		UserAccessToken: long.AccessToken,
		Scopes:          strings.Join(configuration.InstagramScopes, ","),
		PageID:          &pageID,
		PageName:        &name,
		AccountID:       &accountID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if long.ExpiresIn > 0 {
		exp := now.Add(time.Duration(long.ExpiresIn) * time.Second)
		cred.UserTokenExpiresAt = &exp
	}
	if err := l.store.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("store instagram credential: %w", err)
	}
	logger.GetLogger().WithField("page_id", pageID).WithField("ig_user_id", accountID).Info("Instagram account linked")
	return cred, nil
}

// selectPage walks pages in order and returns the first one that has a linked
// Instagram business account.
func (l *Linker) selectPage(ctx context.Context, pages []Page) (*Page, *PageDetails, error) {
	if len(pages) == 0 {
		return nil, nil, ErrNoPages
	}
	for i := range pages {
		details, err := l.graph.PageDetails(ctx, pages[i].ID, pages[i].AccessToken)
		if err != nil {
			return nil, nil, err
		}
		if details.InstagramBusinessAccount != nil && details.InstagramBusinessAccount.ID != "" {
			return &pages[i], details, nil
		}
	}
	return nil, nil, ErrNoLinkedPages
}

func oauthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &model.VendorError{Platform: model.PlatformInstagram, Operation: "oauth", StatusCode: status, Body: retrieveErr.Body}
	}
	return fmt.Errorf("facebook code exchange: %w", err)
}

package instagram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"
)

const notConnectedHint = `Use "Connect Instagram" in the dashboard or set FB_PAGE_ACCESS_TOKEN and IG_USER_ID`

// Publisher publishes to an Instagram business account in two phases: the
// file is pushed to a public host, then a Graph media container referencing
// that URL is created and published.
type Publisher struct {
	cfg   configuration.Instagram
	graph *GraphClient
	host  repository.IMediaHost
	store repository.ICredentialStore
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewPublisher(cfg configuration.Instagram, graph *GraphClient, host repository.IMediaHost, store repository.ICredentialStore) *Publisher {
	return &Publisher{cfg: cfg, graph: graph, host: host, store: store, sleep: sleepCtx, now: time.Now}
}

func (p *Publisher) Platform() model.Platform { return model.PlatformInstagram }

// Credentials is the resolved page token and business account id.
type Credentials struct {
	PageAccessToken string
	IGUserID        string
	Stored          *model.PlatformCredential
}

// ResolveCredentials applies env overrides first, then the linked credential,
// field by field.
func (p *Publisher) ResolveCredentials(ctx context.Context) (*Credentials, error) {
	creds := &Credentials{PageAccessToken: p.cfg.PageAccessToken, IGUserID: p.cfg.UserID}
	if p.store != nil && (creds.PageAccessToken == "" || creds.IGUserID == "") {
		stored, err := p.store.Get(ctx, model.PlatformInstagram)
		if err != nil && !errors.Is(err, model.ErrCredentialNotFound) {
			logger.GetLogger().WithField("error", err).Warn("Failed to read stored Instagram credential")
		}
		if stored != nil {
			creds.Stored = stored
			if creds.PageAccessToken == "" {
				creds.PageAccessToken = stored.AccessToken
			}
			if creds.IGUserID == "" {
				creds.IGUserID = model.StringValue(stored.AccountID)
			}
		}
	}

	var missing []string
	if creds.PageAccessToken == "" {
		missing = append(missing, "FB_PAGE_ACCESS_TOKEN")
	}
	if creds.IGUserID == "" {
		missing = append(missing, "IG_USER_ID")
	}
	if len(missing) > 0 {
		return nil, &model.ConfigError{Platform: model.PlatformInstagram, Missing: missing, Hint: notConnectedHint}
	}
	return creds, nil
}

func (p *Publisher) Publish(ctx context.Context, req *model.PublishRequest) model.PublishOutcome {
	result, hosted, err := p.publish(ctx, req)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformInstagram).WithField("error", err).Warn("Instagram publish failed")
		out := model.Failed(err)
		if hosted != nil {
			out = out.WithDetail("host", hosted)
		}
		return out
	}
	return model.Succeeded(result)
}

func (p *Publisher) publish(ctx context.Context, req *model.PublishRequest) (map[string]any, *repository.HostedMedia, error) {
	creds, err := p.ResolveCredentials(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		return nil, nil, fmt.Errorf("media file not found for Instagram upload: %w", err)
	}
	if p.host == nil || !p.host.Configured() {
		return nil, nil, &model.ConfigError{
			Platform: model.PlatformInstagram,
			Hint:     "public media host is not configured; set the CLOUDINARY_* or S3_* variables",
		}
	}

	hosted, err := p.host.Upload(ctx, req.FilePath)
	if err != nil {
		return nil, nil, &model.HostError{Provider: p.host.Name(), Err: err}
	}

	isVideo := strings.HasPrefix(req.MimeType, "video/")
	if req.MimeType == "" {
		isVideo = hosted.ResourceType == "video"
	}

	params := ContainerParams{Caption: req.Caption, AccessToken: creds.PageAccessToken}
	if isVideo {
		params.MediaType = p.cfg.VideoMediaType
		params.VideoURL = hosted.URL
	} else {
		params.ImageURL = hosted.URL
	}
	creationID, err := p.graph.CreateContainer(ctx, creds.IGUserID, params)
	if err != nil {
		return nil, hosted, err
	}

	if isVideo {
		if err := p.waitReady(ctx, creationID, creds.PageAccessToken); err != nil {
			return nil, hosted, err
		}
	}

	published, err := p.graph.PublishContainer(ctx, creds.IGUserID, creationID, creds.PageAccessToken)
	if err != nil {
		return nil, hosted, err
	}
	return map[string]any{
		"creationId":    creationID,
		"publishResult": published,
	}, hosted, nil
}

// waitReady polls a video container until Instagram finished processing it.
func (p *Publisher) waitReady(ctx context.Context, containerID, token string) error {
	if p.cfg.PollAttempts <= 0 {
		return nil
	}
	last := ""
	for attempt := 0; attempt < p.cfg.PollAttempts; attempt++ {
		status, err := p.graph.ContainerStatus(ctx, containerID, token)
		if err != nil {
			return err
		}
		last = status
		switch status {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return &model.VendorError{
				Platform:  model.PlatformInstagram,
				Operation: "container_status",
				Message:   "media container " + strings.ToLower(status),
			}
		}
		if err := p.sleep(ctx, p.cfg.PollInterval); err != nil {
			return err
		}
	}
	return &model.VendorError{
		Platform:  model.PlatformInstagram,
		Operation: "container_status",
		Message:   fmt.Sprintf("media container not ready after %d checks (last status %q)", p.cfg.PollAttempts, last),
	}
}

// Status reports whether credentials resolve and the account answers.
func (p *Publisher) Status(ctx context.Context) dto.PlatformStatus {
	st := dto.PlatformStatus{CheckedAt: p.now().UTC(), RedirectURI: p.cfg.RedirectURI}
	creds, err := p.ResolveCredentials(ctx)
	if err != nil {
		var configErr *model.ConfigError
		if errors.As(err, &configErr) {
			st.Missing = configErr.Missing
		}
		st.Error = err.Error()
		return st
	}
	if p.host == nil || !p.host.Configured() {
		st.Error = "public media host is not configured"
		return st
	}
	if _, err := p.graph.Account(ctx, creds.IGUserID, creds.PageAccessToken); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Connected = true
	return st
}

// LinkStatus describes where the Instagram credentials come from.
func (p *Publisher) LinkStatus(ctx context.Context) dto.InstagramLinkStatus {
	creds, err := p.ResolveCredentials(ctx)
	if err != nil {
		return dto.InstagramLinkStatus{}
	}
	st := dto.InstagramLinkStatus{Connected: true, Source: "env"}
	if creds.Stored != nil {
		st.Source = "oauth"
		updated := creds.Stored.UpdatedAt
		st.UpdatedAt = &updated
		if creds.Stored.PageID != nil {
			st.Page = &dto.LinkedPage{ID: *creds.Stored.PageID, Name: model.StringValue(creds.Stored.PageName)}
		}
	}
	return st
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

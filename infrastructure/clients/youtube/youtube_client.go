package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const studioURL = "https://studio.youtube.com/video/%s/edit"

// Client publishes videos through the YouTube Data API v3.
type Client struct {
	cfg    configuration.YouTube
	tokens *TokenProvider
	now    func() time.Time
}

// NewYouTubeClient creates a new YouTube publisher
func NewYouTubeClient(cfg configuration.YouTube, tokens *TokenProvider) *Client {
	return &Client{cfg: cfg, tokens: tokens, now: time.Now}
}

func (c *Client) Platform() model.Platform { return model.PlatformYouTube }

// Publish uploads the request file as a private video.
func (c *Client) Publish(ctx context.Context, req *model.PublishRequest) model.PublishOutcome {
	result, err := c.upload(ctx, req)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformYouTube).WithField("error", err).Warn("YouTube upload failed")
		return model.Failed(err)
	}
	return model.Succeeded(result)
}

func (c *Client) upload(ctx context.Context, req *model.PublishRequest) (map[string]any, error) {
	src, err := c.tokens.source(ctx)
	if err != nil {
		return nil, err
	}
	service, err := c.service(ctx, src)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat media: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.New("invalid media file")
	}

	video := BuildVideo(req, c.now())
	response, err := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError(err)
	}

	result := map[string]any{"videoId": response.Id}
	if response.Id != "" {
		result["url"] = fmt.Sprintf(studioURL, response.Id)
	}
	return result, nil
}

func (c *Client) service(ctx context.Context, src oauth2.TokenSource) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if c.cfg.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.APIEndpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

// Status checks configuration and proves connectivity with a refresh grant.
func (c *Client) Status(ctx context.Context) dto.PlatformStatus {
	st := dto.PlatformStatus{CheckedAt: c.now().UTC(), RedirectURI: c.cfg.RedirectURI}
	missing := c.cfg.Missing(false)
	if _, err := c.tokens.RefreshToken(ctx); err != nil {
		missing = append(missing, "YT_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		st.Missing = missing
		return st
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Connected = true
	if !tok.Expiry.IsZero() {
		st.ExpiresIn = int64(tok.Expiry.Sub(c.now()).Seconds())
	}
	return st
}

// BuildVideo maps a publish request onto upload metadata. Uploads are always
// private and not made for kids.
func BuildVideo(req *model.PublishRequest, now time.Time) *youtube.Video {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "upload - " + now.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: req.Caption,
			Tags:        SanitizeTags(req.Tags),
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "private",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// SanitizeTags trims tags and drops blanks. It returns nil when nothing is
// left so the field is omitted from the request.
func SanitizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &model.VendorError{
			Platform:   model.PlatformYouTube,
			Operation:  "upload",
			StatusCode: gerr.Code,
			Body:       []byte(gerr.Body),
			Message:    gerr.Message,
		}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return tokenError(err)
	}
	return fmt.Errorf("failed to upload video: %w", err)
}

package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"
)

// Client talks to the TikTok Open API share endpoints.
type Client struct {
	cfg        configuration.TikTok
	httpClient *http.Client
	now        func() time.Time
}

func NewTikTokClient(cfg configuration.TikTok, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}
}

func (c *Client) Platform() model.Platform { return model.PlatformTikTok }

// TokenInfo is a freshly refreshed access token.
type TokenInfo struct {
	AccessToken string `json:"access_token"`
	OpenID      string `json:"open_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

type refreshRequest struct {
	ClientKey    string `json:"client_key"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

type uploadRequest struct {
	Source    string `json:"source"`
	MediaType string `json:"media_type"`
	VideoSize int64  `json:"video_size"`
}

type uploadSession struct {
	UploadID  string `json:"upload_id"`
	UploadURL string `json:"upload_url"`
}

type publishRequest struct {
	UploadID     string `json:"upload_id"`
	Text         string `json:"text"`
	Title        string `json:"title,omitempty"`
	PrivacyLevel string `json:"privacy_level"`
}

type publishStatus struct {
	ErrorCode   json.RawMessage `json:"error_code"`
	Description string          `json:"description"`
}

// code returns the platform error code, or "" when the call succeeded. The
// code arrives as a number or as a quoted string.
func (s publishStatus) code() string {
	c := strings.Trim(strings.TrimSpace(string(s.ErrorCode)), `"`)
	switch c {
	case "", "0", "null", "false":
		return ""
	}
	return c
}

// RefreshAccessToken exchanges the configured refresh token. TikTok access
// tokens are never cached; every publish performs a new refresh.
func (c *Client) RefreshAccessToken(ctx context.Context) (*TokenInfo, error) {
	if missing := c.cfg.Missing(); len(missing) > 0 {
		return nil, &model.ConfigError{
			Platform: model.PlatformTikTok,
			Missing:  missing,
			Hint:     "Verify TT_CLIENT_KEY, TT_CLIENT_SECRET and TT_REFRESH_TOKEN",
		}
	}
	var data TokenInfo
	body, err := c.postJSON(ctx, "token", "/oauth/refresh_token/", "", refreshRequest{
		ClientKey:    c.cfg.ClientKey,
		ClientSecret: c.cfg.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: c.cfg.RefreshToken,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, &model.VendorError{
			Platform:  model.PlatformTikTok,
			Operation: "token",
			Body:      body,
			Message:   "refresh token rejected",
		}
	}
	return &data, nil
}

// Publish runs refresh, upload session, binary transfer and publish in order.
func (c *Client) Publish(ctx context.Context, req *model.PublishRequest) model.PublishOutcome {
	result, err := c.publish(ctx, req)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformTikTok).WithField("error", err).Warn("TikTok publish failed")
		return model.Failed(err)
	}
	return model.Succeeded(result)
}

func (c *Client) publish(ctx context.Context, req *model.PublishRequest) (map[string]any, error) {
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("media file not found for TikTok upload: %w", err)
	}

	token, err := c.RefreshAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	session, err := c.createUploadSession(ctx, token.AccessToken, info.Size())
	if err != nil {
		return nil, err
	}
	if err := c.uploadFile(ctx, session.UploadURL, req.FilePath, info.Size()); err != nil {
		return nil, err
	}

	privacy := c.cfg.DefaultPrivacy
	published, err := c.publishVideo(ctx, token.AccessToken, publishRequest{
		UploadID:     session.UploadID,
		Text:         BuildCaption(req.Title, req.Caption, req.Tags),
		Title:        truncate(req.Title, maxTitleRunes),
		PrivacyLevel: privacy,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"uploadId":      session.UploadID,
		"publishResult": published,
		"openId":        token.OpenID,
		"info": map[string]any{
			"sizeBytes":   info.Size(),
			"privacy":     privacy,
			"redirectUri": c.cfg.RedirectURI,
		},
	}, nil
}

func (c *Client) createUploadSession(ctx context.Context, accessToken string, size int64) (*uploadSession, error) {
	var session uploadSession
	body, err := c.postJSON(ctx, "upload", "/share/video/upload/", accessToken, uploadRequest{
		Source:    "FILE_UPLOAD",
		MediaType: "VIDEO",
		VideoSize: size,
	}, &session)
	if err != nil {
		return nil, err
	}
	if session.UploadID == "" || session.UploadURL == "" {
		return nil, &model.VendorError{
			Platform:  model.PlatformTikTok,
			Operation: "upload",
			Body:      body,
			Message:   "missing upload_id/upload_url",
		}
	}
	return &session, nil
}

// uploadFile streams the file to the one-time upload URL. No size cap.
func (c *Client) uploadFile(ctx context.Context, uploadURL, filePath string, size int64) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok transfer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &model.VendorError{Platform: model.PlatformTikTok, Operation: "transfer", StatusCode: resp.StatusCode, Body: body}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) publishVideo(ctx context.Context, accessToken string, payload publishRequest) (any, error) {
	var raw json.RawMessage
	body, err := c.postJSON(ctx, "publish", "/share/video/publish/", accessToken, payload, &raw)
	if err != nil {
		return nil, err
	}

	var status publishStatus
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, &model.VendorError{
				Platform:   model.PlatformTikTok,
				Operation:  "publish",
				StatusCode: http.StatusOK,
				Body:       body,
				Message:    "unexpected response shape",
			}
		}
	}
	if code := status.code(); code != "" {
		return nil, &model.VendorError{
			Platform:   model.PlatformTikTok,
			Operation:  "publish",
			StatusCode: http.StatusOK,
			Body:       body,
			Message:    fmt.Sprintf("error %s: %s", code, status.Description),
		}
	}

	var result any
	if len(raw) > 0 && string(raw) != "null" {
		_ = json.Unmarshal(raw, &result)
	} else {
		_ = json.Unmarshal(body, &result)
	}
	return result, nil
}

// postJSON sends payload and decodes the "data" member of the response into
// data. The raw body is returned for diagnostics.
func (c *Client) postJSON(ctx context.Context, op, path, accessToken string, payload, data any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tiktok %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &model.VendorError{Platform: model.PlatformTikTok, Operation: op, StatusCode: resp.StatusCode, Body: body}
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body, &model.VendorError{Platform: model.PlatformTikTok, Operation: op, StatusCode: resp.StatusCode, Body: body, Message: "invalid JSON response"}
	}
	if raw, ok := data.(*json.RawMessage); ok {
		*raw = envelope.Data
		return body, nil
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			return body, &model.VendorError{Platform: model.PlatformTikTok, Operation: op, StatusCode: resp.StatusCode, Body: body, Message: "unexpected response shape"}
		}
	}
	return body, nil
}

// Status reports missing settings or proves connectivity with a refresh.
func (c *Client) Status(ctx context.Context) dto.PlatformStatus {
	st := dto.PlatformStatus{CheckedAt: c.now().UTC()}
	if missing := c.cfg.Missing(); len(missing) > 0 {
		st.Missing = missing
		return st
	}
	token, err := c.RefreshAccessToken(ctx)
	if err != nil {
		var vendorErr *model.VendorError
		if errors.As(err, &vendorErr) {
			logger.GetLogger().WithField("body", string(vendorErr.Body)).Warn("TikTok refresh failed")
		}
		st.Error = "could not refresh the TikTok access token; verify the credentials"
		return st
	}
	st.Connected = true
	st.ExpiresIn = token.ExpiresIn
	st.OpenID = token.OpenID
	st.RedirectURI = c.cfg.RedirectURI
	return st
}

package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"multipost/domain/model"

	"github.com/google/go-querystring/query"
)

// GraphClient is a thin Facebook Graph API client covering the calls needed
// to link a page and publish Instagram media.
type GraphClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGraphClient(baseURL string, httpClient *http.Client) *GraphClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GraphClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// HTTPClient is used for the oauth2 code exchange as well.
func (g *GraphClient) HTTPClient() *http.Client { return g.httpClient }

type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type PageDetails struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
}

type LongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type exchangeParams struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FBExchangeToken string `url:"fb_exchange_token"`
}

type fieldsParams struct {
	Fields      string `url:"fields,omitempty"`
	AccessToken string `url:"access_token"`
}

// ContainerParams describes a media container. Exactly one of ImageURL and
// VideoURL is set.
type ContainerParams struct {
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
	MediaType   string `url:"media_type,omitempty"`
	VideoURL    string `url:"video_url,omitempty"`
	ImageURL    string `url:"image_url,omitempty"`
}

type publishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

// ExchangeLongLived trades a short-lived user token for a long-lived one.
func (g *GraphClient) ExchangeLongLived(ctx context.Context, appID, appSecret, shortToken string) (*LongLivedToken, error) {
	var tok LongLivedToken
	if _, err := g.do(ctx, http.MethodGet, "oauth", "/oauth/access_token", exchangeParams{
		GrantType:       "fb_exchange_token",
		ClientID:        appID,
		ClientSecret:    appSecret,
		FBExchangeToken: shortToken,
	}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("graph returned no long-lived access token")
	}
	return &tok, nil
}

// ListPages returns the pages the user manages, each with its page token.
func (g *GraphClient) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	var resp struct {
		Data []Page `json:"data"`
	}
	if _, err := g.do(ctx, http.MethodGet, "pages", "/me/accounts", fieldsParams{
		Fields:      "name,id,access_token",
		AccessToken: userToken,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// PageDetails fetches the linked Instagram business account of a page.
func (g *GraphClient) PageDetails(ctx context.Context, pageID, pageToken string) (*PageDetails, error) {
	var details PageDetails
	if _, err := g.do(ctx, http.MethodGet, "pages", "/"+url.PathEscape(pageID), fieldsParams{
		Fields:      "instagram_business_account,name",
		AccessToken: pageToken,
	}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// CreateContainer creates a media container and returns its creation id.
func (g *GraphClient) CreateContainer(ctx context.Context, igUserID string, params ContainerParams) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	body, err := g.do(ctx, http.MethodPost, "container", "/"+url.PathEscape(igUserID)+"/media", params, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &model.VendorError{Platform: model.PlatformInstagram, Operation: "container", Body: body, Message: "failed to create media container"}
	}
	return resp.ID, nil
}

// ContainerStatus returns the status_code of a container (IN_PROGRESS,
// FINISHED, ERROR, EXPIRED, PUBLISHED).
func (g *GraphClient) ContainerStatus(ctx context.Context, containerID, token string) (string, error) {
	var resp struct {
		StatusCode string `json:"status_code"`
	}
	if _, err := g.do(ctx, http.MethodGet, "container_status", "/"+url.PathEscape(containerID), fieldsParams{
		Fields:      "status_code",
		AccessToken: token,
	}, &resp); err != nil {
		return "", err
	}
	return resp.StatusCode, nil
}

// PublishContainer publishes a container by creation id.
func (g *GraphClient) PublishContainer(ctx context.Context, igUserID, creationID, token string) (json.RawMessage, error) {
	var resp json.RawMessage
	if _, err := g.do(ctx, http.MethodPost, "publish", "/"+url.PathEscape(igUserID)+"/media_publish", publishParams{
		CreationID:  creationID,
		AccessToken: token,
	}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Account fetches basic fields of an Instagram business account.
func (g *GraphClient) Account(ctx context.Context, igUserID, token string) (map[string]any, error) {
	var resp map[string]any
	if _, err := g.do(ctx, http.MethodGet, "account", "/"+url.PathEscape(igUserID), fieldsParams{
		Fields:      "id,username",
		AccessToken: token,
	}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// do encodes params as a query string (GET) or form body (POST) and decodes
// a 2xx JSON answer into out. Any other status becomes a VendorError.
func (g *GraphClient) do(ctx context.Context, method, op, path string, params, out any) ([]byte, error) {
	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", op, err)
	}

	endpoint := g.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph %s request: %w", op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read graph %s response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return raw, &model.VendorError{Platform: model.PlatformInstagram, Operation: op, StatusCode: resp.StatusCode, Body: raw}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, &model.VendorError{Platform: model.PlatformInstagram, Operation: op, StatusCode: resp.StatusCode, Body: raw, Message: "invalid JSON response"}
		}
	}
	return raw, nil
}

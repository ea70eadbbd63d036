package configuration

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// InstagramScopes are requested from the Facebook login dialog.
var InstagramScopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"instagram_basic",
	"instagram_content_publish",
}

// isSet reports whether a value is present and not a template placeholder.
func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.HasPrefix(v, "YOUR_")
}

func missing(pairs ...[2]string) []string {
	var out []string
	for _, p := range pairs {
		if !isSet(p[1]) {
			out = append(out, p[0])
		}
	}
	return out
}

// Missing lists the environment variables needed for uploads that are absent.
// RefreshToken may be satisfied by the credential store, so callers decide
// whether to include it.
func (y YouTube) Missing(withRefreshToken bool) []string {
	pairs := [][2]string{{"YT_CLIENT_ID", y.ClientID}, {"YT_CLIENT_SECRET", y.ClientSecret}}
	if withRefreshToken {
		pairs = append(pairs, [2]string{"YT_REFRESH_TOKEN", y.RefreshToken})
	}
	return missing(pairs...)
}

// OAuth2Config returns the Google OAuth client for the upload scope.
func (y YouTube) OAuth2Config() *oauth2.Config {
	endpoint := google.Endpoint
	if y.TokenURL != "" {
		endpoint.TokenURL = y.TokenURL
	}
	return &oauth2.Config{
		ClientID:     y.ClientID,
		ClientSecret: y.ClientSecret,
		RedirectURL:  y.RedirectURI,
		Scopes:       []string{youtube.YoutubeUploadScope},
		Endpoint:     endpoint,
	}
}

// AppMissing lists absent Facebook app settings required by the login flow.
func (i Instagram) AppMissing() []string {
	return missing(
		[2]string{"FB_APP_ID", i.AppID},
		[2]string{"FB_APP_SECRET", i.AppSecret},
		[2]string{"FB_REDIRECT_URI", i.RedirectURI},
	)
}

// OAuth2Config returns the Facebook login client. Facebook expects the client
// credentials as query parameters.
func (i Instagram) OAuth2Config() *oauth2.Config {
	base := strings.TrimRight(i.GraphBaseURL, "/")
	return &oauth2.Config{
		ClientID:     i.AppID,
		ClientSecret: i.AppSecret,
		RedirectURL:  i.RedirectURI,
		Scopes:       InstagramScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   i.DialogURL,
			TokenURL:  base + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Missing lists absent TikTok settings.
func (t TikTok) Missing() []string {
	return missing(
		[2]string{"TT_CLIENT_KEY", t.ClientKey},
		[2]string{"TT_CLIENT_SECRET", t.ClientSecret},
		[2]string{"TT_REFRESH_TOKEN", t.RefreshToken},
	)
}

// Configured reports whether Cloudinary credentials are complete.
func (c Cloudinary) Configured() bool {
	return isSet(c.CloudName) && isSet(c.APIKey) && isSet(c.APISecret)
}

// Configured reports whether an S3 bucket is usable.
func (s S3) Configured() bool {
	return isSet(s.Bucket) && isSet(s.Region)
}

package model

import "time"

// PlatformCredential is the stored token payload of one platform. Only the
// fields a platform needs are filled: YouTube keeps a refresh token, Instagram
// a page token plus the linked business account. UserTokenExpiresAt belongs to
// UserAccessToken; page tokens derived from a long-lived user token do not
// expire, so Instagram leaves ExpiresAt nil.
type PlatformCredential struct {
	ID                 int64      `json:"id,omitempty"`
	Platform           Platform   `json:"platform"`
	AccessToken        string     `json:"access_token,omitempty"`
	RefreshToken       string     `json:"refresh_token,omitempty"`
	UserAccessToken    string     `json:"user_access_token,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	UserTokenExpiresAt *time.Time `json:"user_token_expires_at,omitempty"`
	Scopes             string     `json:"scopes,omitempty"`
	PageID             *string    `json:"page_id,omitempty"`
	PageName           *string    `json:"page_name,omitempty"`
	AccountID          *string    `json:"account_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// StringValue dereferences optional string columns.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

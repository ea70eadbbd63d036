package dto

import "time"

// PlatformStatus reports whether a platform is configured and reachable.
type PlatformStatus struct {
	Connected bool      `json:"connected"`
	Missing   []string  `json:"missing,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
	ExpiresIn int64     `json:"expiresIn,omitempty"`
	OpenID    string    `json:"openId,omitempty"`
	// RedirectURI is the OAuth callback registered for the platform.
	RedirectURI string `json:"redirectUri,omitempty"`
}

// InstagramLinkStatus describes the stored Instagram link.
type InstagramLinkStatus struct {
	Connected bool        `json:"connected"`
	Page      *LinkedPage `json:"page"`
	UpdatedAt *time.Time  `json:"updatedAt"`
	Source    string      `json:"source,omitempty"`
}

type LinkedPage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

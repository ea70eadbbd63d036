package model

import "strings"

// Platform identifies one of the publishing targets.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformYouTube, PlatformInstagram, PlatformTikTok}

// ParsePlatform normalizes a raw identifier. ok is false for anything outside
// the supported set.
func ParsePlatform(raw string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok:
		return p, true
	}
	return p, false
}

func (p Platform) String() string { return string(p) }

package tiktok

import "strings"

const (
	maxCaptionRunes = 150
	maxTitleRunes   = 80
	captionSep      = " • "
)

// BuildCaption joins title, caption and hashtags with a bullet separator and
// truncates the result to 150 characters.
func BuildCaption(title, caption string, tags []string) string {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if caption != "" {
		parts = append(parts, caption)
	}
	if len(tags) > 0 {
		hashtags := make([]string, 0, len(tags))
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			if !strings.HasPrefix(tag, "#") {
				tag = "#" + tag
			}
			hashtags = append(hashtags, tag)
		}
		if len(hashtags) > 0 {
			parts = append(parts, strings.Join(hashtags, " "))
		}
	}
	return truncate(strings.Join(parts, captionSep), maxCaptionRunes)
}

// truncate cuts s to at most n characters without splitting a code point.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

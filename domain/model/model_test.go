package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, ok := ParsePlatform("  YouTube ")
	assert.True(t, ok)
	assert.Equal(t, PlatformYouTube, p)

	p, ok = ParsePlatform("myspace")
	assert.False(t, ok)
	assert.Equal(t, Platform("myspace"), p)
}

func TestFailedVendorJSONBody(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &VendorError{
		Platform:   PlatformTikTok,
		Operation:  "init",
		StatusCode: 400,
		Body:       []byte(`{"error":{"code":"invalid_param"}}`),
	})

	out := Failed(err)
	assert.False(t, out.OK)
	raw, ok := out.Error.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"error":{"code":"invalid_param"}}`, string(raw))
	assert.Equal(t, "init", out.Detail["stage"])
	assert.Equal(t, 400, out.Detail["status"])
}

func TestFailedVendorTextBody(t *testing.T) {
	out := Failed(&VendorError{Platform: PlatformInstagram, Operation: "publish", StatusCode: 502, Body: []byte("bad gateway\n")})
	assert.Equal(t, "instagram publish: status 502: bad gateway", out.Error)
}

func TestFailedHostAndConfig(t *testing.T) {
	out := Failed(&HostError{Provider: "cloudinary", Err: errors.New("quota")})
	assert.Equal(t, "host", out.Detail["stage"])
	assert.Equal(t, "cloudinary", out.Detail["provider"])
	assert.Contains(t, out.Error, "quota")

	out = Failed(&ConfigError{Platform: PlatformYouTube, Missing: []string{"YT_REFRESH_TOKEN"}})
	assert.Equal(t, "config", out.Detail["stage"])
	assert.Equal(t, []string{"YT_REFRESH_TOKEN"}, out.Detail["missing"])
	assert.Equal(t, "youtube not connected: missing YT_REFRESH_TOKEN", out.Error)

	out = Failed(errors.New("boom"))
	assert.Equal(t, "boom", out.Error)
	assert.Nil(t, out.Detail)

	assert.Equal(t, "unknown error", Failed(nil).Error)
}

func TestUnknownPlatformOutcome(t *testing.T) {
	out := UnknownPlatform("vine")
	assert.False(t, out.OK)
	assert.Equal(t, "unknown platform", out.Error)
	assert.Equal(t, "vine", out.Detail["platform"])
}

func TestNewHistoryEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 20, 30, 123_000_000, time.FixedZone("WIB", 7*3600))
	req := &PublishRequest{FilePath: "/tmp/x.mp4", Caption: "hi", Title: "t", Tags: []string{"a"}, Platforms: []string{"youtube"}}

	entry := NewHistoryEntry(now, req, map[string]PublishOutcome{"youtube": Succeeded(map[string]any{"videoId": "v1"})})

	assert.True(t, strings.HasPrefix(entry.ID, "2024-05-01T03:20:30.123Z_"))
	assert.Len(t, entry.ID, len("2024-05-01T03:20:30.123Z_")+6)
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
	assert.Equal(t, "hi", entry.Payload.Caption)

	b, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "/tmp/x.mp4")
}

func TestStringValue(t *testing.T) {
	v := "x"
	assert.Equal(t, "x", StringValue(&v))
	assert.Equal(t, "", StringValue(nil))
}

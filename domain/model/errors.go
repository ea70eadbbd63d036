package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoPlatforms is returned when a request selects no platform.
	ErrNoPlatforms = errors.New("select at least one platform")
	// ErrMediaUnavailable is returned when the uploaded file cannot be read
	// before dispatch.
	ErrMediaUnavailable = errors.New("media file unavailable")
	// ErrCredentialNotFound is returned by credential stores for unknown platforms.
	ErrCredentialNotFound = errors.New("credential not found")
)

// ConfigError reports required configuration that is absent. It is raised
// before any network call.
type ConfigError struct {
	Platform Platform
	Missing  []string
	Hint     string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s not connected", e.Platform)
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// VendorError carries a non-success answer from a platform API. Body holds the
// raw response so the outcome can surface it verbatim.
type VendorError struct {
	Platform   Platform
	Operation  string
	StatusCode int
	Body       []byte
	Message    string
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s", e.Platform, e.Operation, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Platform, e.Operation, e.StatusCode, strings.TrimSpace(string(e.Body)))
	}
	return fmt.Sprintf("%s %s failed", e.Platform, e.Operation)
}

// Detail returns the structured body when it is JSON, else the message text.
func (e *VendorError) Detail() any {
	if len(e.Body) > 0 && json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return e.Error()
}

// HostError wraps a failure of the public hosting step so it can be told apart
// from Graph API failures.
type HostError struct {
	Provider string
	Err      error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("public host upload (%s) failed: %v", e.Provider, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

package model

import "errors"

// PublishRequest is one orchestration call. FilePath is owned by the run and
// removed by the caller once every platform has settled.
type PublishRequest struct {
	FilePath  string   `json:"-"`
	MimeType  string   `json:"mimeType,omitempty"`
	Caption   string   `json:"caption"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Platforms []string `json:"platforms"`
}

// PublishOutcome is the settled result of one platform.
type PublishOutcome struct {
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result,omitempty"`
	Error  any            `json:"error,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(result map[string]any) PublishOutcome {
	return PublishOutcome{OK: true, Result: result}
}

// Failed converts err into a failed outcome, preferring structured vendor
// bodies over message strings.
func Failed(err error) PublishOutcome {
	out := PublishOutcome{OK: false}
	if err == nil {
		out.Error = "unknown error"
		return out
	}

	var vendorErr *VendorError
	var hostErr *HostError
	var configErr *ConfigError
	switch {
	case errors.As(err, &hostErr):
		out.Error = hostErr.Error()
		out.Detail = map[string]any{"stage": "host", "provider": hostErr.Provider}
	case errors.As(err, &vendorErr):
		out.Error = vendorErr.Detail()
		out.Detail = map[string]any{"stage": vendorErr.Operation}
		if vendorErr.StatusCode != 0 {
			out.Detail["status"] = vendorErr.StatusCode
		}
		if vendorErr.Message != "" {
			out.Detail["message"] = vendorErr.Message
		}
	case errors.As(err, &configErr):
		out.Error = configErr.Error()
		out.Detail = map[string]any{"stage": "config"}
		if len(configErr.Missing) > 0 {
			out.Detail["missing"] = configErr.Missing
		}
	default:
		out.Error = err.Error()
	}
	return out
}

// WithDetail attaches a diagnostic value to the outcome.
func (o PublishOutcome) WithDetail(key string, value any) PublishOutcome {
	if o.Detail == nil {
		o.Detail = map[string]any{}
	}
	o.Detail[key] = value
	return o
}

// UnknownPlatform is the outcome for identifiers outside the supported set.
func UnknownPlatform(raw string) PublishOutcome {
	return PublishOutcome{
		OK:     false,
		Error:  "unknown platform",
		Detail: map[string]any{"platform": raw},
	}
}

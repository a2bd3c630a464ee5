package http

import (
	"net/http"
	"strings"

	"github.com/crmarques/hypersync/config"
)

type authMode int

const (
	authModeNone authMode = iota
	authModeBasic
	authModeBearer
	authModeCustomHeader
)

type authConfig struct {
	mode         authMode
	basicAuth    config.BasicAuth
	bearerToken  config.BearerTokenAuth
	customHeader config.HeaderTokenAuth
}

// buildAuthConfig accepts static credentials only. No auth block means
// anonymous requests.
func buildAuthConfig(cfg *config.HTTPAuth) (authConfig, error) {
	if cfg == nil {
		return authConfig{}, nil
	}

	setCount := 0
	if cfg.BasicAuth != nil {
		setCount++
	}
	if cfg.BearerToken != nil {
		setCount++
	}
	if cfg.CustomHeader != nil {
		setCount++
	}
	if setCount != 1 {
		return authConfig{}, validationError("api.auth must define exactly one auth mode", nil)
	}

	switch {
	case cfg.BasicAuth != nil:
		basic := *cfg.BasicAuth
		if strings.TrimSpace(basic.Username) == "" {
			return authConfig{}, validationError("api.auth.basic-auth requires username", nil)
		}
		return authConfig{mode: authModeBasic, basicAuth: basic}, nil
	case cfg.BearerToken != nil:
		bearer := *cfg.BearerToken
		if bearer.Token == "" {
			return authConfig{}, validationError("api.auth.bearer-token.token is required", nil)
		}
		return authConfig{mode: authModeBearer, bearerToken: bearer}, nil
	default:
		custom := *cfg.CustomHeader
		if custom.Header == "" || custom.Token == "" {
			return authConfig{}, validationError("api.auth.custom-header requires header and token", nil)
		}
		return authConfig{mode: authModeCustomHeader, customHeader: custom}, nil
	}
}

func (t *HTTPTransport) applyAuth(request *http.Request) {
	switch t.auth.mode {
	case authModeBasic:
		request.SetBasicAuth(t.auth.basicAuth.Username, t.auth.basicAuth.Password)
	case authModeBearer:
		request.Header.Set("Authorization", "Bearer "+t.auth.bearerToken.Token)
	case authModeCustomHeader:
		request.Header.Set(t.auth.customHeader.Header, t.auth.customHeader.Token)
	}
}

// Package http implements the engine's transport contract over net/http.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/internal/providers/shared/tlsconfig"
	"github.com/crmarques/hypersync/transport"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultBodyLimit   = 8 << 20
	userAgent          = "hypersync"
)

var _ transport.Transport = (*HTTPTransport)(nil)

// HTTPTransport sends engine requests to one API. Relative request URIs
// resolve against the API root.
type HTTPTransport struct {
	baseURL        *url.URL
	defaultHeaders map[string]string
	auth           authConfig
	client         *http.Client
	tlsDebug       tlsDebugInfo
	bodyLimit      int64
}

type Option func(*HTTPTransport)

// WithHTTPClient replaces the underlying client. TLS and cookie settings
// from the config are not applied to it.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		if t == nil || client == nil {
			return
		}
		t.client = client
	}
}

func WithBodyLimit(limit int64) Option {
	return func(t *HTTPTransport) {
		if t == nil || limit <= 0 {
			return
		}
		t.bodyLimit = limit
	}
}

func NewHTTPTransport(cfg config.API, opts ...Option) (*HTTPTransport, error) {
	baseURL, err := parseBaseURL(cfg.Root)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := tlsconfig.BuildTLSConfig(cfg.TLS, "api")
	if err != nil {
		return nil, err
	}

	roundTripper := http.DefaultTransport.(*http.Transport).Clone()
	roundTripper.TLSClientConfig = tlsConfig

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: roundTripper,
	}
	if cfg.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, internalError("failed to create cookie jar", err)
		}
		client.Jar = jar
	}

	t := &HTTPTransport{
		baseURL:        baseURL,
		defaultHeaders: cloneStringMap(cfg.DefaultHeaders),
		auth:           auth,
		client:         client,
		tlsDebug:       newTLSDebugInfo(cfg.TLS),
		bodyLimit:      defaultBodyLimit,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(t)
	}
	return t, nil
}

// BaseURL returns the API root URI.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL.String()
}

// Do sends request and returns any response that reached the server,
// whatever its status. Network failures and oversized bodies are
// TransportErrors.
func (t *HTTPTransport) Do(ctx context.Context, request transport.Request) (*transport.Response, error) {
	httpRequest, err := t.newRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	response, err := t.doRequest(ctx, request.Method, httpRequest)
	if err != nil {
		return nil, transportError("remote request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, t.bodyLimit+1))
	if err != nil {
		return nil, transportError("failed to read remote response body", err)
	}
	if int64(len(body)) > t.bodyLimit {
		return nil, transportError(fmt.Sprintf("remote response body exceeds %d bytes", t.bodyLimit), nil)
	}

	return &transport.Response{
		StatusCode: response.StatusCode,
		Header:     response.Header.Clone(),
		Body:       body,
	}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, request transport.Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(request.Method))
	if method == "" {
		return nil, validationError("request method is required", nil)
	}
	targetURL, err := t.resolveRequestURL(request.URI)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(request.Body) > 0 {
		bodyReader = bytes.NewReader(request.Body)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, targetURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to create remote request", err)
	}

	httpRequest.Header.Set("User-Agent", userAgent)
	keys := make([]string, 0, len(t.defaultHeaders))
	for key := range t.defaultHeaders {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		httpRequest.Header.Set(key, t.defaultHeaders[key])
	}
	for key, values := range request.Header {
		httpRequest.Header.Del(key)
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}
	if accept := strings.TrimSpace(request.Accept); accept != "" {
		httpRequest.Header.Set("Accept", accept)
	}
	if len(request.Body) > 0 && strings.TrimSpace(request.ContentType) != "" {
		httpRequest.Header.Set("Content-Type", request.ContentType)
	}

	t.applyAuth(httpRequest)
	return httpRequest, nil
}

// resolveRequestURL resolves uri against the API root. Absolute URIs on
// other hosts are allowed; hypermedia links may point anywhere.
func (t *HTTPTransport) resolveRequestURL(uri string) (string, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return "", validationError("request uri is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", validationError(fmt.Sprintf("request uri %q is invalid", trimmed), err)
	}
	return t.baseURL.ResolveReference(parsed).String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, validationError("api.root is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, validationError("api.root is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError("api.root scheme must be http or https", nil)
	}
	if parsed.Host == "" {
		return nil, validationError("api.root host is required", nil)
	}
	return parsed, nil
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}
	return cloned
}

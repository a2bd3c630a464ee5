package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/debugctx"
)

type tlsDebugInfo struct {
	enabled            bool
	insecureSkipVerify bool
	caCertFile         string
	clientCertFile     string
}

func newTLSDebugInfo(tlsSettings *config.TLS) tlsDebugInfo {
	if tlsSettings == nil {
		return tlsDebugInfo{}
	}
	return tlsDebugInfo{
		enabled:            true,
		insecureSkipVerify: tlsSettings.InsecureSkipVerify,
		caCertFile:         strings.TrimSpace(tlsSettings.CACertFile),
		clientCertFile:     strings.TrimSpace(tlsSettings.ClientCertFile),
	}
}

func (t *HTTPTransport) doRequest(ctx context.Context, operation string, request *http.Request) (*http.Response, error) {
	debugctx.Printf(
		ctx,
		"http request operation=%q method=%q url=%q tls_enabled=%t mtls_enabled=%t tls_insecure_skip_verify=%t tls_ca_cert_file=%q",
		operation,
		request.Method,
		redactURLForDebug(request.URL),
		t.tlsDebug.enabled,
		t.tlsDebug.clientCertFile != "",
		t.tlsDebug.insecureSkipVerify,
		t.tlsDebug.caCertFile,
	)

	response, err := t.client.Do(request)
	if err != nil {
		debugctx.Printf(ctx, "http request failed method=%q url=%q error=%v", request.Method, redactURLForDebug(request.URL), err)
		return nil, err
	}

	debugctx.Printf(
		ctx,
		"http response method=%q url=%q status=%d content_type=%q",
		request.Method,
		redactURLForDebug(request.URL),
		response.StatusCode,
		response.Header.Get("Content-Type"),
	)
	return response, nil
}

func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	cloned := *value
	cloned.User = nil

	query := cloned.Query()
	if len(query) > 0 {
		for key, values := range query {
			redacted := make([]string, len(values))
			for idx := range values {
				redacted[idx] = "<redacted>"
			}
			query[key] = redacted
		}
		cloned.RawQuery = query.Encode()
	}

	return cloned.String()
}

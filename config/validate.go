package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crmarques/hypersync/compare"
)

// Validate rejects sessions that cannot be turned into a working client.
func Validate(session Session) error {
	session = session.WithDefaults()

	if err := validateAPI(session.API); err != nil {
		return err
	}
	if err := validateScheduler(session.Scheduler); err != nil {
		return err
	}
	if err := validateSync(session.Sync); err != nil {
		return err
	}
	return validateTelemetry(session.Telemetry)
}

func validateAPI(api API) error {
	root := strings.TrimSpace(api.Root)
	if root == "" {
		return validationError("api.root must be set", nil)
	}
	parsed, err := url.Parse(root)
	if err != nil {
		return validationError("api.root is not a valid URL", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validationError("api.root must be an absolute http or https URL", nil)
	}
	if parsed.Host == "" {
		return validationError("api.root must include a host", nil)
	}

	if api.Timeout < 0 {
		return validationError("api.timeout must not be negative", nil)
	}
	for name := range api.DefaultHeaders {
		if strings.TrimSpace(name) == "" {
			return validationError("api.default-headers must not contain empty header names", nil)
		}
	}
	if constraint := strings.TrimSpace(api.RequireVersion); constraint != "" {
		if _, err := semver.NewConstraint(constraint); err != nil {
			return validationError(fmt.Sprintf("api.require-version %q is not a valid semver constraint", constraint), err)
		}
	}

	if err := validateAuth(api.Auth); err != nil {
		return err
	}
	return validateTLS(api.TLS)
}

func validateAuth(auth *HTTPAuth) error {
	if auth == nil {
		return nil
	}

	count := 0
	if auth.BasicAuth != nil {
		count++
		if strings.TrimSpace(auth.BasicAuth.Username) == "" {
			return validationError("api.auth.basic-auth.username must be set", nil)
		}
	}
	if auth.BearerToken != nil {
		count++
		if strings.TrimSpace(auth.BearerToken.Token) == "" {
			return validationError("api.auth.bearer-token.token must be set", nil)
		}
	}
	if auth.CustomHeader != nil {
		count++
		if strings.TrimSpace(auth.CustomHeader.Header) == "" || strings.TrimSpace(auth.CustomHeader.Token) == "" {
			return validationError("api.auth.custom-header requires header and token", nil)
		}
	}
	if count != 1 {
		return validationError("api.auth must define exactly one of basic-auth, bearer-token or custom-header", nil)
	}
	return nil
}

func validateTLS(tls *TLS) error {
	if tls == nil {
		return nil
	}
	if (strings.TrimSpace(tls.ClientCertFile) == "") != (strings.TrimSpace(tls.ClientKeyFile) == "") {
		return validationError("api.tls requires both client-cert-file and client-key-file", nil)
	}
	return nil
}

func validateScheduler(scheduler Scheduler) error {
	if scheduler.Concurrency < 1 {
		return validationError("scheduler.concurrency must be at least 1", nil)
	}
	if scheduler.RateLimit < 0 {
		return validationError("scheduler.rate-limit must not be negative", nil)
	}
	if scheduler.Burst < 0 {
		return validationError("scheduler.burst must not be negative", nil)
	}
	return nil
}

func validateSync(sync Sync) error {
	if sync.BatchSize < 0 {
		return validationError("sync.batch-size must not be negative", nil)
	}
	if sync.ChildStrategyBatchSize < 0 {
		return validationError("sync.child-strategy-batch-size must not be negative", nil)
	}
	if _, err := compare.ParseAll(sync.Comparators); err != nil {
		return err
	}
	return nil
}

func validateTelemetry(telemetry Telemetry) error {
	if listen := strings.TrimSpace(telemetry.MetricsListen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return validationError("telemetry.metrics-listen must be host:port", err)
		}
	}
	return nil
}

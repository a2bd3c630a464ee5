package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crmarques/hypersync/faults"
)

const sampleConfig = `
api:
  root: https://api.example.com/
  default-headers:
    X-Client: hypersync
  auth:
    bearer-token:
      token: secret
  timeout: 5s
  cookies: true
  require-version: ">= 1.2.0, < 2.0.0"
scheduler:
  concurrency: 3
  rate-limit: 10
  burst: 2
sync:
  batch-size: 4
  mapped-title-attribute: label
  comparators:
    - uri
    - attribute:code
telemetry:
  metrics-listen: 127.0.0.1:9090
`

func TestDecode(t *testing.T) {
	t.Parallel()

	session, err := Decode([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if session.API.Root != "https://api.example.com/" {
		t.Fatalf("unexpected root %q", session.API.Root)
	}
	if session.API.Timeout.Std() != 5*time.Second {
		t.Fatalf("unexpected timeout %s", session.API.Timeout.Std())
	}
	if session.API.VersionHeader != DefaultVersionHeader {
		t.Fatalf("expected default version header, got %q", session.API.VersionHeader)
	}
	if session.API.Auth == nil || session.API.Auth.BearerToken == nil || session.API.Auth.BearerToken.Token != "secret" {
		t.Fatalf("unexpected auth %#v", session.API.Auth)
	}
	if session.Scheduler.Concurrency != 3 || session.Scheduler.RateLimit != 10 || session.Scheduler.Burst != 2 {
		t.Fatalf("unexpected scheduler %#v", session.Scheduler)
	}
	if len(session.Sync.Comparators) != 2 || session.Sync.MappedTitleAttribute != "label" {
		t.Fatalf("unexpected sync %#v", session.Sync)
	}
	if err := Validate(session); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("api:\n  root: https://x\n  bogus: true\n"))
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDecodeEmptyYieldsDefaults(t *testing.T) {
	t.Parallel()

	session, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if session.Scheduler.Concurrency != DefaultConcurrency {
		t.Fatalf("expected default concurrency, got %d", session.Scheduler.Concurrency)
	}
	if session.API.Timeout.Std() != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", session.API.Timeout.Std())
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	session, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if session.Sync.BatchSize != 4 {
		t.Fatalf("unexpected batch size %d", session.Sync.BatchSize)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError for missing explicit file, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	session, err := Decode([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	data, err := Encode(session)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of encoded config returned error: %v\n%s", err, data)
	}
	if decoded.API.Timeout != session.API.Timeout || decoded.API.Root != session.API.Root {
		t.Fatalf("round trip changed api settings: %#v", decoded.API)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Parallel()

	session := Default()
	environ := []string{
		"PATH=/usr/bin",
		"HYPERSYNC_CONFIG=/ignored.yaml",
		"HYPERSYNC_API_ROOT=https://env.example.com/",
		"HYPERSYNC_SCHEDULER_CONCURRENCY=7",
		"HYPERSYNC_API_AUTH_BASIC_AUTH_USERNAME=alice",
		"HYPERSYNC_API_AUTH_BASIC_AUTH_PASSWORD=pw",
		"HYPERSYNC_API_TIMEOUT=2s",
		"HYPERSYNC_SYNC_COMPARATORS=name, title",
		"HYPERSYNC_SYNC_REPLACE_URI_LIST=true",
	}
	if err := ApplyEnvOverrides(&session, environ); err != nil {
		t.Fatalf("ApplyEnvOverrides returned error: %v", err)
	}

	if session.API.Root != "https://env.example.com/" {
		t.Fatalf("unexpected root %q", session.API.Root)
	}
	if session.Scheduler.Concurrency != 7 {
		t.Fatalf("unexpected concurrency %d", session.Scheduler.Concurrency)
	}
	if session.API.Auth.BasicAuth.Username != "alice" || session.API.Auth.BasicAuth.Password != "pw" {
		t.Fatalf("unexpected basic auth %#v", session.API.Auth.BasicAuth)
	}
	if session.API.Timeout.Std() != 2*time.Second {
		t.Fatalf("unexpected timeout %s", session.API.Timeout.Std())
	}
	if len(session.Sync.Comparators) != 2 || session.Sync.Comparators[1] != "title" {
		t.Fatalf("unexpected comparators %v", session.Sync.Comparators)
	}
	if !session.Sync.ReplaceURIList {
		t.Fatal("expected replace-uri-list to be enabled")
	}
	if err := Validate(session); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestApplyEnvOverridesErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		env  string
	}{
		{name: "unknown_key", env: "HYPERSYNC_API_NOPE=1"},
		{name: "bad_int", env: "HYPERSYNC_SCHEDULER_CONCURRENCY=many"},
		{name: "bad_bool", env: "HYPERSYNC_API_COOKIES=maybe"},
		{name: "bad_duration", env: "HYPERSYNC_API_TIMEOUT=soon"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			session := Default()
			if err := ApplyEnvOverrides(&session, []string{tc.env}); !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestEnvVar(t *testing.T) {
	t.Parallel()

	if got := EnvVar("api.root"); got != "HYPERSYNC_API_ROOT" {
		t.Fatalf("unexpected env var %q", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Session {
		session := Default()
		session.API.Root = "https://api.example.com/"
		return session
	}

	for _, tc := range []struct {
		name   string
		mutate func(*Session)
	}{
		{name: "missing_root", mutate: func(s *Session) { s.API.Root = "" }},
		{name: "relative_root", mutate: func(s *Session) { s.API.Root = "/api" }},
		{name: "bad_constraint", mutate: func(s *Session) { s.API.RequireVersion = "not a version" }},
		{name: "two_auth_methods", mutate: func(s *Session) {
			s.API.Auth = &HTTPAuth{
				BasicAuth:   &BasicAuth{Username: "a"},
				BearerToken: &BearerTokenAuth{Token: "t"},
			}
		}},
		{name: "empty_auth", mutate: func(s *Session) { s.API.Auth = &HTTPAuth{} }},
		{name: "custom_header_without_token", mutate: func(s *Session) {
			s.API.Auth = &HTTPAuth{CustomHeader: &HeaderTokenAuth{Header: "X-Key"}}
		}},
		{name: "half_client_cert", mutate: func(s *Session) { s.API.TLS = &TLS{ClientCertFile: "cert.pem"} }},
		{name: "negative_concurrency", mutate: func(s *Session) { s.Scheduler.Concurrency = -1 }},
		{name: "negative_rate", mutate: func(s *Session) { s.Scheduler.RateLimit = -1 }},
		{name: "negative_batch", mutate: func(s *Session) { s.Sync.BatchSize = -1 }},
		{name: "bad_comparator", mutate: func(s *Session) { s.Sync.Comparators = []string{"colour"} }},
		{name: "bad_metrics_listen", mutate: func(s *Session) { s.Telemetry.MetricsListen = "9090" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			session := valid()
			tc.mutate(&session)
			if err := Validate(session); !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if err := Validate(valid()); err != nil {
		t.Fatalf("expected valid session, got %v", err)
	}
}

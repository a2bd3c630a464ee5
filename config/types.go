package config

import (
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	EnvPrefix            = "HYPERSYNC_"
	ConfigFileEnvVar     = EnvPrefix + "CONFIG"
	DefaultConfigPath    = "~/.hypersync/config.yaml"
	DefaultVersionHeader = "X-Api-Version"
	DefaultConcurrency   = 5
	DefaultTimeout       = 30 * time.Second
)

// Session is the full configuration of one client session against a
// hypermedia API.
type Session struct {
	API       API       `yaml:"api"`
	Scheduler Scheduler `yaml:"scheduler,omitempty"`
	Sync      Sync      `yaml:"sync,omitempty"`
	Telemetry Telemetry `yaml:"telemetry,omitempty"`
}

type API struct {
	// Root is the URI of the API root resource.
	Root           string            `yaml:"root"`
	DefaultHeaders map[string]string `yaml:"default-headers,omitempty"`
	Auth           *HTTPAuth         `yaml:"auth,omitempty"`
	TLS            *TLS              `yaml:"tls,omitempty"`
	Timeout        Duration          `yaml:"timeout,omitempty"`
	Cookies        bool              `yaml:"cookies,omitempty"`
	// RequireVersion is a semver constraint the API version must satisfy.
	RequireVersion string `yaml:"require-version,omitempty"`
	VersionHeader  string `yaml:"version-header,omitempty"`
}

// HTTPAuth carries static credentials. Exactly one method may be set.
type HTTPAuth struct {
	BasicAuth    *BasicAuth       `yaml:"basic-auth,omitempty"`
	BearerToken  *BearerTokenAuth `yaml:"bearer-token,omitempty"`
	CustomHeader *HeaderTokenAuth `yaml:"custom-header,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type BearerTokenAuth struct {
	Token string `yaml:"token"`
}

type HeaderTokenAuth struct {
	Header string `yaml:"header"`
	Token  string `yaml:"token"`
}

type TLS struct {
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
}

type Scheduler struct {
	Concurrency int `yaml:"concurrency,omitempty"`
	// RateLimit is in requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate-limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
}

type Sync struct {
	BatchSize              int      `yaml:"batch-size,omitempty"`
	ChildStrategyBatchSize int      `yaml:"child-strategy-batch-size,omitempty"`
	ForceLoad              bool     `yaml:"force-load,omitempty"`
	MappedTitleAttribute   string   `yaml:"mapped-title-attribute,omitempty"`
	Comparators            []string `yaml:"comparators,omitempty"`
	ReplaceURIList         bool     `yaml:"replace-uri-list,omitempty"`
	StopOnError            bool     `yaml:"stop-on-error,omitempty"`
}

type Telemetry struct {
	OTLPEndpoint  string `yaml:"otlp-endpoint,omitempty"`
	OTLPInsecure  bool   `yaml:"otlp-insecure,omitempty"`
	MetricsListen string `yaml:"metrics-listen,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	if d == 0 {
		return "", nil
	}
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a session with every optional setting at its documented
// default.
func Default() Session {
	return Session{
		API: API{
			Timeout:       Duration(DefaultTimeout),
			VersionHeader: DefaultVersionHeader,
		},
		Scheduler: Scheduler{Concurrency: DefaultConcurrency},
	}
}

// WithDefaults fills unset optional settings.
func (s Session) WithDefaults() Session {
	defaults := Default()
	if s.API.Timeout == 0 {
		s.API.Timeout = defaults.API.Timeout
	}
	if s.API.VersionHeader == "" {
		s.API.VersionHeader = defaults.API.VersionHeader
	}
	if s.Scheduler.Concurrency == 0 {
		s.Scheduler.Concurrency = defaults.Scheduler.Concurrency
	}
	return s
}

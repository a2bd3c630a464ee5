package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

var (
	envSetters = map[string]func(*Session, string) error{
		"api.root":                       setAPIRoot,
		"api.default_headers":            setAPIDefaultHeaders,
		"api.timeout":                    setAPITimeout,
		"api.cookies":                    setAPICookies,
		"api.require_version":            setAPIRequireVersion,
		"api.version_header":             setAPIVersionHeader,
		"api.auth.basic_auth.username":   setAPIAuthBasicUsername,
		"api.auth.basic_auth.password":   setAPIAuthBasicPassword,
		"api.auth.bearer_token.token":    setAPIAuthBearerToken,
		"api.auth.custom_header.header":  setAPIAuthCustomHeaderHeader,
		"api.auth.custom_header.token":   setAPIAuthCustomHeaderToken,
		"api.tls.ca_cert_file":           setAPITLSCACertFile,
		"api.tls.client_cert_file":       setAPITLSClientCertFile,
		"api.tls.client_key_file":        setAPITLSClientKeyFile,
		"api.tls.insecure_skip_verify":   setAPITLSInsecureSkipVerify,
		"scheduler.concurrency":          setSchedulerConcurrency,
		"scheduler.rate_limit":           setSchedulerRateLimit,
		"scheduler.burst":                setSchedulerBurst,
		"sync.batch_size":                setSyncBatchSize,
		"sync.child_strategy_batch_size": setSyncChildStrategyBatchSize,
		"sync.force_load":                setSyncForceLoad,
		"sync.mapped_title_attribute":    setSyncMappedTitleAttribute,
		"sync.comparators":               setSyncComparators,
		"sync.replace_uri_list":          setSyncReplaceURIList,
		"sync.stop_on_error":             setSyncStopOnError,
		"telemetry.otlp_endpoint":        setTelemetryOTLPEndpoint,
		"telemetry.otlp_insecure":        setTelemetryOTLPInsecure,
		"telemetry.metrics_listen":       setTelemetryMetricsListen,
	}
	envSuffixToPath map[string]string
)

func init() {
	envSuffixToPath = make(map[string]string, len(envSetters))
	for path := range envSetters {
		envSuffixToPath[toEnvSuffix(path)] = path
	}
}

func toEnvSuffix(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// EnvVar returns the variable that overrides the setting at path, e.g.
// "api.root" is HYPERSYNC_API_ROOT.
func EnvVar(path string) string {
	return EnvPrefix + toEnvSuffix(path)
}

// ApplyEnvOverrides applies HYPERSYNC_* variables from environ (os.Environ
// form) onto session. HYPERSYNC_CONFIG is not a setting and is skipped;
// any other unknown HYPERSYNC_ variable is a validation error.
func ApplyEnvOverrides(session *Session, environ []string) error {
	if session == nil {
		return validationError("config session is nil", nil)
	}

	overrides := map[string]string{}
	for _, env := range environ {
		if !strings.HasPrefix(env, EnvPrefix) {
			continue
		}
		key, value, _ := strings.Cut(env, "=")
		if key == ConfigFileEnvVar {
			continue
		}
		path, ok := envSuffixToPath[strings.TrimPrefix(key, EnvPrefix)]
		if !ok {
			return validationError(fmt.Sprintf("unsupported config override %q", key), nil)
		}
		overrides[path] = value
	}

	paths := make([]string, 0, len(overrides))
	for path := range overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := envSetters[path](session, overrides[path]); err != nil {
			return validationError(fmt.Sprintf("failed to apply override %s", EnvVar(path)), err)
		}
	}
	return nil
}

// LoadWithEnv loads path and applies the process environment on top.
func LoadWithEnv(path string) (Session, error) {
	session, err := Load(path)
	if err != nil {
		return Session{}, err
	}
	if err := ApplyEnvOverrides(&session, os.Environ()); err != nil {
		return Session{}, err
	}
	return session.WithDefaults(), nil
}

func parseBool(value string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(value))
}

func parseInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("value is empty")
	}
	return strconv.Atoi(trimmed)
}

func parseFloat(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("value is empty")
	}
	return strconv.ParseFloat(trimmed, 64)
}

func parseStringMap(value string) (map[string]string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	var result map[string]string
	if err := yaml.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("invalid map: %w", err)
	}
	return result, nil
}

func parseStringList(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func ensureAuth(session *Session) *HTTPAuth {
	if session.API.Auth == nil {
		session.API.Auth = &HTTPAuth{}
	}
	return session.API.Auth
}

func ensureBasicAuth(session *Session) *BasicAuth {
	auth := ensureAuth(session)
	if auth.BasicAuth == nil {
		auth.BasicAuth = &BasicAuth{}
	}
	return auth.BasicAuth
}

func ensureCustomHeader(session *Session) *HeaderTokenAuth {
	auth := ensureAuth(session)
	if auth.CustomHeader == nil {
		auth.CustomHeader = &HeaderTokenAuth{}
	}
	return auth.CustomHeader
}

func ensureTLS(session *Session) *TLS {
	if session.API.TLS == nil {
		session.API.TLS = &TLS{}
	}
	return session.API.TLS
}

func setAPIRoot(session *Session, value string) error {
	session.API.Root = strings.TrimSpace(value)
	return nil
}

func setAPIDefaultHeaders(session *Session, value string) error {
	headers, err := parseStringMap(value)
	if err != nil {
		return err
	}
	session.API.DefaultHeaders = headers
	return nil
}

func setAPITimeout(session *Session, value string) error {
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	session.API.Timeout = Duration(parsed)
	return nil
}

func setAPICookies(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	session.API.Cookies = parsed
	return nil
}

func setAPIRequireVersion(session *Session, value string) error {
	session.API.RequireVersion = strings.TrimSpace(value)
	return nil
}

func setAPIVersionHeader(session *Session, value string) error {
	session.API.VersionHeader = strings.TrimSpace(value)
	return nil
}

func setAPIAuthBasicUsername(session *Session, value string) error {
	ensureBasicAuth(session).Username = value
	return nil
}

func setAPIAuthBasicPassword(session *Session, value string) error {
	ensureBasicAuth(session).Password = value
	return nil
}

func setAPIAuthBearerToken(session *Session, value string) error {
	ensureAuth(session).BearerToken = &BearerTokenAuth{Token: value}
	return nil
}

func setAPIAuthCustomHeaderHeader(session *Session, value string) error {
	ensureCustomHeader(session).Header = value
	return nil
}

func setAPIAuthCustomHeaderToken(session *Session, value string) error {
	ensureCustomHeader(session).Token = value
	return nil
}

func setAPITLSCACertFile(session *Session, value string) error {
	ensureTLS(session).CACertFile = value
	return nil
}

func setAPITLSClientCertFile(session *Session, value string) error {
	ensureTLS(session).ClientCertFile = value
	return nil
}

func setAPITLSClientKeyFile(session *Session, value string) error {
	ensureTLS(session).ClientKeyFile = value
	return nil
}

func setAPITLSInsecureSkipVerify(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	ensureTLS(session).InsecureSkipVerify = parsed
	return nil
}

func setSchedulerConcurrency(session *Session, value string) error {
	parsed, err := parseInt(value)
	if err != nil {
		return err
	}
	session.Scheduler.Concurrency = parsed
	return nil
}

func setSchedulerRateLimit(session *Session, value string) error {
	parsed, err := parseFloat(value)
	if err != nil {
		return err
	}
	session.Scheduler.RateLimit = parsed
	return nil
}

func setSchedulerBurst(session *Session, value string) error {
	parsed, err := parseInt(value)
	if err != nil {
		return err
	}
	session.Scheduler.Burst = parsed
	return nil
}

func setSyncBatchSize(session *Session, value string) error {
	parsed, err := parseInt(value)
	if err != nil {
		return err
	}
	session.Sync.BatchSize = parsed
	return nil
}

func setSyncChildStrategyBatchSize(session *Session, value string) error {
	parsed, err := parseInt(value)
	if err != nil {
		return err
	}
	session.Sync.ChildStrategyBatchSize = parsed
	return nil
}

func setSyncForceLoad(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	session.Sync.ForceLoad = parsed
	return nil
}

func setSyncMappedTitleAttribute(session *Session, value string) error {
	session.Sync.MappedTitleAttribute = strings.TrimSpace(value)
	return nil
}

func setSyncComparators(session *Session, value string) error {
	session.Sync.Comparators = parseStringList(value)
	return nil
}

func setSyncReplaceURIList(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	session.Sync.ReplaceURIList = parsed
	return nil
}

func setSyncStopOnError(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	session.Sync.StopOnError = parsed
	return nil
}

func setTelemetryOTLPEndpoint(session *Session, value string) error {
	session.Telemetry.OTLPEndpoint = strings.TrimSpace(value)
	return nil
}

func setTelemetryOTLPInsecure(session *Session, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	session.Telemetry.OTLPInsecure = parsed
	return nil
}

func setTelemetryMetricsListen(session *Session, value string) error {
	session.Telemetry.MetricsListen = strings.TrimSpace(value)
	return nil
}

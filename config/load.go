package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/yamlutil"
)

// Load reads the session file at path. An empty path falls back to
// HYPERSYNC_CONFIG and then DefaultConfigPath; a missing default file yields
// Default().
func Load(path string) (Session, error) {
	explicit := strings.TrimSpace(path) != "" || strings.TrimSpace(os.Getenv(ConfigFileEnvVar)) != ""
	resolved, err := ResolvePath(path)
	if err != nil {
		return Session{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return Session{}, validationError(fmt.Sprintf("config file %q could not be read", resolved), err)
	}
	return Decode(data)
}

// Decode parses session YAML. Unknown keys are rejected.
func Decode(data []byte) (Session, error) {
	var session Session
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}

	if err := yamlutil.DecodeStrict(data, &session); err != nil && !errors.Is(err, io.EOF) {
		return Session{}, validationError("invalid config yaml", err)
	}
	return session.WithDefaults(), nil
}

func Encode(session Session) ([]byte, error) {
	return yamlutil.MarshalWithIndent(session, 2)
}

// ResolvePath expands "~" and makes path absolute.
func ResolvePath(explicitPath string) (string, error) {
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigFileEnvVar))
	}
	if path == "" {
		path = DefaultConfigPath
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", faults.NewTypedError(faults.InternalError, "failed to resolve user home directory", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == "." {
		return "", validationError("config path is invalid", errors.New("resolved to current directory"))
	}
	absolute, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", validationError("config path is invalid", err)
	}
	return absolute, nil
}

func parseDuration(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return parsed, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

// Package tlsconfig builds client TLS settings from configuration.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/faults"
)

// BuildTLSConfig returns nil when settings is nil so callers keep the
// default transport behaviour. scope prefixes config keys in errors.
func BuildTLSConfig(settings *config.TLS, scope string) (*tls.Config, error) {
	if settings == nil {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: settings.InsecureSkipVerify,
	}

	pool, err := loadRootCAs(settings.CACertFile, scope)
	if err != nil {
		return nil, err
	}
	tlsConfig.RootCAs = pool

	certificate, ok, err := loadClientCertificate(settings.ClientCertFile, settings.ClientKeyFile, scope)
	if err != nil {
		return nil, err
	}
	if ok {
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	return tlsConfig, nil
}

func loadRootCAs(path string, scope string) (*x509.CertPool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	caBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, validationError(fmt.Sprintf("%s.tls.ca-cert-file could not be read", scope), err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caBytes); !ok {
		return nil, validationError(fmt.Sprintf("%s.tls.ca-cert-file is not valid PEM", scope), nil)
	}
	return pool, nil
}

func loadClientCertificate(certFile string, keyFile string, scope string) (tls.Certificate, bool, error) {
	certFile = strings.TrimSpace(certFile)
	keyFile = strings.TrimSpace(keyFile)
	if (certFile == "") != (keyFile == "") {
		return tls.Certificate{}, false, validationError(
			fmt.Sprintf("%s.tls requires both client-cert-file and client-key-file", scope),
			nil,
		)
	}
	if certFile == "" {
		return tls.Certificate{}, false, nil
	}

	certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, false, validationError(
			fmt.Sprintf("%s.tls client certificate pair is invalid", scope),
			err,
		)
	}
	return certificate, true, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

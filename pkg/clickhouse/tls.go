package clickhouse

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// Enabled reports whether any TLS material is configured.
func (s TLSSettings) Enabled() bool {
	return s.CertFile != "" || s.CAFile != ""
}

// TLSConfig builds the client TLS configuration. A client certificate is presented when
// CertFile is set, and CAFile replaces the system roots used to verify the server.
//
// Example usage:
//
//	cfg, err := TLSSettings{CAFile: "ca.pem"}.TLSConfig()
//	if err != nil {
//		return err
//	}
func (s TLSSettings) TLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if s.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load client certificate %s", s.CertFile)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if s.CAFile != "" {
		pem, err := os.ReadFile(s.CAFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA file %s", s.CAFile)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in CA file: %s", s.CAFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

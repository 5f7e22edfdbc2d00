package api

import (
	"crypto/tls"
	"log"
	"os"
)

// TLSConfig holds TLS certificate paths loaded from environment variables.
type TLSConfig struct {
	CertFile   string
	KeyFile    string
	MinVersion uint16
}

var tlsConfig *TLSConfig

// InitTLS reads SENTIENT_TLS_CERT and SENTIENT_TLS_KEY. TLS is enabled only
// when both are set. SENTIENT_TLS_MIN_VERSION accepts "1.2" (default) or "1.3".
func InitTLS() {
	certFile := os.Getenv("SENTIENT_TLS_CERT")
	keyFile := os.Getenv("SENTIENT_TLS_KEY")

	if certFile == "" || keyFile == "" {
		tlsConfig = nil
		return
	}

	minVersion := uint16(tls.VersionTLS12)
	switch v := os.Getenv("SENTIENT_TLS_MIN_VERSION"); v {
	case "", "1.2":
	case "1.3":
		minVersion = tls.VersionTLS13
	default:
		log.Printf("ignoring unknown SENTIENT_TLS_MIN_VERSION %q", v)
	}

	tlsConfig = &TLSConfig{
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: minVersion,
	}
}

// IsTLSEnabled returns true if TLS is configured.
func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// GetTLSConfig returns the current TLS configuration (may be nil).
func GetTLSConfig() *TLSConfig {
	return tlsConfig
}

// LoadTLSConfig loads a tls.Config from the cert and key files.
// Returns nil and logs an error if loading fails.
func LoadTLSConfig() *tls.Config {
	if !IsTLSEnabled() {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
	if err != nil {
		log.Printf("Failed to load TLS certificate: %v", err)
		return nil
	}

	minVersion := tlsConfig.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}
}

// SetTLSConfigForTest allows tests to set TLS config directly.
func SetTLSConfigForTest(cfg *TLSConfig) {
	tlsConfig = cfg
}

package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitTLS(t *testing.T) {
	tests := []struct {
		name        string
		cert, key   string
		min         string
		wantEnabled bool
		wantMin     uint16
	}{
		{name: "no env vars"},
		{name: "only cert", cert: "/path/to/cert.pem"},
		{name: "only key", key: "/path/to/key.pem"},
		{name: "both set", cert: "/path/to/cert.pem", key: "/path/to/key.pem", wantEnabled: true, wantMin: tls.VersionTLS12},
		{name: "tls 1.3", cert: "/c.pem", key: "/k.pem", min: "1.3", wantEnabled: true, wantMin: tls.VersionTLS13},
		{name: "unknown min version", cert: "/c.pem", key: "/k.pem", min: "0.9", wantEnabled: true, wantMin: tls.VersionTLS12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SENTIENT_TLS_CERT", tt.cert)
			t.Setenv("SENTIENT_TLS_KEY", tt.key)
			t.Setenv("SENTIENT_TLS_MIN_VERSION", tt.min)
			SetTLSConfigForTest(nil)
			defer SetTLSConfigForTest(nil)

			InitTLS()

			if IsTLSEnabled() != tt.wantEnabled {
				t.Fatalf("IsTLSEnabled() = %v, want %v", IsTLSEnabled(), tt.wantEnabled)
			}
			if !tt.wantEnabled {
				return
			}
			cfg := GetTLSConfig()
			if cfg.CertFile != tt.cert || cfg.KeyFile != tt.key {
				t.Errorf("paths = %q/%q, want %q/%q", cfg.CertFile, cfg.KeyFile, tt.cert, tt.key)
			}
			if cfg.MinVersion != tt.wantMin {
				t.Errorf("MinVersion = %x, want %x", cfg.MinVersion, tt.wantMin)
			}
		})
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	SetTLSConfigForTest(nil)

	if cfg := LoadTLSConfig(); cfg != nil {
		t.Error("LoadTLSConfig should return nil when TLS is not enabled")
	}
}

func TestLoadTLSConfig_InvalidFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	defer SetTLSConfigForTest(nil)

	if cfg := LoadTLSConfig(); cfg != nil {
		t.Error("LoadTLSConfig should return nil when cert files don't exist")
	}
}

func writeSelfSignedPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestLoadTLSConfig_ValidPair(t *testing.T) {
	certPath, keyPath := writeSelfSignedPair(t)
	SetTLSConfigForTest(&TLSConfig{CertFile: certPath, KeyFile: keyPath, MinVersion: tls.VersionTLS13})
	defer SetTLSConfigForTest(nil)

	cfg := LoadTLSConfig()
	if cfg == nil {
		t.Fatal("expected a tls.Config for a valid pair")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", cfg.MinVersion)
	}
}

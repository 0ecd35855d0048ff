package tlsutil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// suites12 limits TLS 1.2 handshakes to forward-secret AEAD suites. TLS 1.3
// suites are fixed by crypto/tls.
var suites12 = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// Config returns the TLS settings shared by the debug service listener and
// the Redis client. Every call returns a fresh copy.
func Config() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: append([]uint16(nil), suites12...),
	}
}

// Client returns the HTTP client used by the health probe and the
// WebSocket dialer. A zero timeout leaves long-lived streams open.
func Client(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = Config()
	return &http.Client{Timeout: timeout, Transport: tr}
}

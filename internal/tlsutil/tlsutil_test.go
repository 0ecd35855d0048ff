package tlsutil

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	cfg := Config()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.ElementsMatch(t, suites12, cfg.CipherSuites)

	// Callers may edit their copy freely.
	cfg.CipherSuites[0] = tls.TLS_RSA_WITH_AES_128_CBC_SHA
	assert.Equal(t, suites12[0], Config().CipherSuites[0])
}

func TestClient(t *testing.T) {
	client := Client(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, tr.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
	assert.NotSame(t, http.DefaultTransport, tr)
	assert.Zero(t, Client(0).Timeout)
}

func TestClient_RejectsOldTLS(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.TLS = &tls.Config{MaxVersion: tls.VersionTLS11}
	ts.StartTLS()
	defer ts.Close()

	client := Client(5 * time.Second)
	client.Transport.(*http.Transport).TLSClientConfig.InsecureSkipVerify = true
	_, err := client.Get(ts.URL)
	assert.Error(t, err)
}

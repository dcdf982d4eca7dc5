package quic

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLSConfigs(t *testing.T) {
	server, client, err := newTLSConfigs()
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS13), server.MinVersion)
	assert.Equal(t, uint16(tls.VersionTLS13), client.MinVersion)
	assert.Equal(t, []string{alpn}, server.NextProtos)
	assert.Equal(t, []string{alpn}, client.NextProtos)
	require.Len(t, server.Certificates, 1)

	cert, err := x509.ParseCertificate(server.Certificates[0].Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, "ansible node", cert.Subject.CommonName)
	assert.WithinDuration(t, time.Now().Add(certValidity), cert.NotAfter, time.Minute)

	require.NoError(t, verifyPeerCertificate(server.Certificates[0].Certificate, nil))
}

func TestVerifyPeerCertificate(t *testing.T) {
	t.Run("未提供证书", func(t *testing.T) {
		assert.Error(t, verifyPeerCertificate(nil, nil))
	})

	t.Run("无法解析", func(t *testing.T) {
		assert.Error(t, verifyPeerCertificate([][]byte{[]byte("nope")}, nil))
	})
}

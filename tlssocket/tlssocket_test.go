// SPDX-License-Identifier: GPL-3.0-or-later

package tlssocket

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSelfSignedCert(t *testing.T, host string) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert
}

func startTLSEchoServer(t *testing.T, cert tls.Certificate) (endpoint.Endpoint, func()) {
	t.Helper()
	ln, err := tls.Listen("tcp4", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		_, _ = conn.Write(buf[:n])
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	loopback, err := ipaddr.Parse("127.0.0.1")
	require.NoError(t, err)
	ep, err := endpoint.NewIP(loopback, uint16(port))
	require.NoError(t, err)

	return ep, func() { ln.Close() }
}

func TestConnectEncryptedEchoRoundTrip(t *testing.T) {
	cert := generateSelfSignedCert(t, "localhost")
	ep, stop := startTLSEchoServer(t, cert)
	defer stop()

	client := NewSocket(netcore.NewConfig(), netcore.DefaultSLogger())
	require.NoError(t, client.ConnectEncrypted(ep, "localhost", time.Second))
	defer client.Disconnect()

	assert.True(t, client.Encrypted())
	assert.NotEmpty(t, client.CipherSuite())

	_, err := client.Write([]byte("hi"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:n]))
}

func TestStartEncryptionFailsWhenNotConnected(t *testing.T) {
	s := NewSocket(netcore.NewConfig(), netcore.DefaultSLogger())
	err := s.StartEncryption(time.Second, "localhost")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMatchesSANGlob(t *testing.T) {
	assert.True(t, matchesSAN("*.example.com", "www.example.com"))
	assert.True(t, matchesSAN("example.com", "example.com"))
	assert.False(t, matchesSAN("*.example.com", "example.com"))
	assert.False(t, matchesSAN("*.example.com", "evil.com"))
}

func TestSetVerifyEnablesCallback(t *testing.T) {
	s := NewSocket(netcore.NewConfig(), netcore.DefaultSLogger())
	assert.True(t, s.Config.InsecureSkipVerify)
	s.SetVerify(true, 2)
	assert.NotNil(t, s.Config.VerifyPeerCertificate)
	assert.Equal(t, 2, s.MaxDepth)
}

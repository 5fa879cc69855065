// SPDX-License-Identifier: GPL-3.0-or-later

// Package tlssocket layers a TLS sub-state machine over [socket.Stream]:
// a TLS context shared by reference across connections, a per-connection
// handle created lazily on first encryption, and transparent read/write
// routing once the handshake completes.
//
// Go's crypto/tls drives its handshake over a blocking [net.Conn]; rather
// than reimplement OpenSSL's incremental WANT_READ/WANT_WRITE stepping,
// netcore adapts the spec's startEncryption/waitEncrypted split into a
// single blocking handshake bounded by a caller-supplied timeout, the
// same explicit-timeout style the rest of this module uses for blocking
// operations.
package tlssocket

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/socket"
)

// Mode selects whether a Socket performs the client or server side of
// the TLS handshake.
type Mode int

const (
	// ClientMode performs the client side of the handshake.
	ClientMode Mode = iota

	// ServerMode performs the server side of the handshake.
	ServerMode
)

// State is one of the two mutually exclusive encryption states.
type State int

const (
	// NonEncrypted means no TLS handshake has completed; I/O passes
	// through to the underlying [socket.Stream] unmodified.
	NonEncrypted State = iota

	// Encrypted means a TLS session is established; I/O is routed
	// through the TLS record layer.
	Encrypted
)

// ErrTlsCloseNotifyAlert indicates the peer performed a clean TLS
// shutdown (a close_notify alert).
var ErrTlsCloseNotifyAlert = errors.New("tlssocket: close notify alert")

// ErrTlsProtocolError indicates a TLS protocol violation.
var ErrTlsProtocolError = errors.New("tlssocket: protocol error")

// ErrNotConnected indicates [Socket.StartEncryption] was called before
// the underlying stream reached [socket.Connected].
var ErrNotConnected = errors.New("tlssocket: underlying stream is not connected")

// ErrVerificationFailed indicates the certificate verification callback
// sequence rejected the peer's chain.
var ErrVerificationFailed = errors.New("tlssocket: certificate verification failed")

// DefaultContext returns the process-wide default TLS configuration:
// TLS 1.2 minimum, Go's default cipher suite list, no compression (Go
// never supports TLS compression), and a client session cache -- the
// same defaults the spec's tlsContext carries out of the box.
func DefaultContext() *tls.Config {
	return &tls.Config{
		MinVersion:             tls.VersionTLS12,
		ClientSessionCache:     tls.NewLRUClientSessionCache(0),
		SessionTicketsDisabled: false,
		// No verification by default, matching SSL_VERIFY_NONE; call
		// SetVerify(true, depth) to install the verification sequence.
		InsecureSkipVerify: true,
	}
}

// Socket layers TLS over a [socket.Stream].
//
// The TLS context (Config) is shared by reference among sockets built
// from the same context, per the spec's ownership model: treat it as
// read-only after construction, serializing any mutation (adding
// certificates, changing the cipher list) through the Set* methods.
type Socket struct {
	socket.Stream

	// Config is the shared TLS context. Defaults to [DefaultContext].
	Config *tls.Config

	// Mode selects client or server handshake behavior.
	Mode Mode

	// MaxDepth bounds the certificate chain verification depth; -1
	// (the default) means unlimited.
	MaxDepth int

	conn       *tls.Conn
	state      State
	serverName string
}

// NewSocket constructs a Socket in [ClientMode] using cfg's error
// classifier and the given logger, with [DefaultContext] as its TLS
// context.
func NewSocket(cfg *netcore.Config, logger netcore.SLogger) *Socket {
	return &Socket{
		Stream:   *socket.NewStream(cfg, logger),
		Config:   DefaultContext(),
		Mode:     ClientMode,
		MaxDepth: -1,
	}
}

// SetCertificate loads a certificate/key pair and makes it available
// for the handshake (client certificate, or server certificate in
// [ServerMode]).
func (s *Socket) SetCertificate(certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("tlssocket: setCertificate: %w", err)
	}
	s.Config.Certificates = append(s.Config.Certificates, cert)
	return nil
}

// SetCaCertificate adds a CA certificate to the trust store
// (Config.RootCAs) used to verify the peer's chain when verification is
// enabled with [Socket.SetVerify].
func (s *Socket) SetCaCertificate(caFile string) error {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return fmt.Errorf("tlssocket: setCaCertificate: %w", err)
	}
	if s.Config.RootCAs == nil {
		s.Config.RootCAs = x509.NewCertPool()
	}
	if !s.Config.RootCAs.AppendCertsFromPEM(pem) {
		return fmt.Errorf("tlssocket: setCaCertificate: no certificates found in %s", caFile)
	}
	return nil
}

// SetVerify enables or disables peer certificate verification. When
// enabled, depth bounds the chain walk (-1 = unlimited) and the
// handshake performs the full callback sequence: depth check, chain
// verification against Config.RootCAs (the system roots when nil), leaf
// SAN hostname glob match, then the CRL and OCSP stubs.
func (s *Socket) SetVerify(enable bool, depth int) {
	s.MaxDepth = depth
	if !enable {
		s.Config.InsecureSkipVerify = true
		s.Config.VerifyPeerCertificate = nil
		return
	}
	s.Config.InsecureSkipVerify = true // we run our own verification below
	s.Config.VerifyPeerCertificate = s.verifyPeerCertificate
}

// SetCipher sets the TLS 1.2-and-below cipher suite list, given as
// colon-separated OpenSSL-style or Go cipher suite names. Unrecognized
// names are skipped.
func (s *Socket) SetCipher(list string) {
	s.Config.CipherSuites = lookupCipherSuites(list)
}

// SetCipher13 accepts a TLS 1.3 cipher suite list. Go's crypto/tls
// exposes no way to restrict or reorder TLS 1.3 suites, so the list has
// no effect on the handshake: every TLS 1.3 suite Go supports stays
// enabled, in Go's own order.
func (s *Socket) SetCipher13(list string) {
	// The list is parsed and then discarded; nothing stores it.
	_ = lookupCipherSuites(list)
}

// ConnectEncrypted connects to ep and performs the TLS handshake using
// serverName for SNI and hostname verification.
func (s *Socket) ConnectEncrypted(ep endpoint.Endpoint, serverName string, timeout time.Duration) error {
	if err := s.Stream.Connect(ep); err != nil {
		return err
	}
	if _, err := s.Stream.WaitConnected(timeout); err != nil {
		return err
	}
	return s.StartEncryption(timeout, serverName)
}

// StartEncryption performs the TLS handshake over the already-connected
// underlying stream, blocking until it completes or fails; each wait for
// socket readiness during the handshake is bounded by timeout.
// serverName sets SNI and is checked against the peer's SAN entries when
// verification is enabled.
func (s *Socket) StartEncryption(timeout time.Duration, serverName string) error {
	if s.Stream.State() != socket.Connected {
		return ErrNotConnected
	}
	if s.state == Encrypted {
		return nil
	}

	s.serverName = serverName
	conn := newStreamConn(&s.Stream, timeout)

	cfg := s.Config.Clone()
	cfg.ServerName = serverName

	t0 := time.Now()
	s.log().Info("tlsHandshakeStart", slog.String("serverName", serverName), slog.Time("t", t0))

	var tlsConn *tls.Conn
	if s.Mode == ServerMode {
		tlsConn = tls.Server(conn, cfg)
	} else {
		tlsConn = tls.Client(conn, cfg)
	}

	err := tlsConn.Handshake()
	s.log().Info("tlsHandshakeDone", slog.Any("err", err), slog.Time("t0", t0), slog.Time("t", time.Now()))
	if err != nil {
		return classifyTlsError(err)
	}

	s.conn = tlsConn
	s.state = Encrypted
	return nil
}

// WaitEncrypted is an alias for [Socket.StartEncryption] kept for
// spec-name parity: the handshake is driven to completion or timeout in
// a single call, rather than resumed step by step.
func (s *Socket) WaitEncrypted(timeout time.Duration, serverName string) error {
	return s.StartEncryption(timeout, serverName)
}

// Encrypted reports whether the TLS handshake has completed.
func (s *Socket) Encrypted() bool {
	return s.state == Encrypted
}

// Read reads plaintext bytes, routing through the TLS record layer when
// [Socket.Encrypted]. A clean close_notify from the peer is reported as
// [ErrTlsCloseNotifyAlert]; any other TLS failure is reported as
// [ErrTlsProtocolError].
func (s *Socket) Read(data []byte) (int, error) {
	if s.state != Encrypted {
		return s.Stream.Read(data)
	}
	n, err := s.conn.Read(data)
	if err != nil {
		return n, classifyTlsError(err)
	}
	return n, nil
}

// Write writes plaintext bytes, routing through the TLS record layer
// when [Socket.Encrypted].
func (s *Socket) Write(data []byte) (int, error) {
	if s.state != Encrypted {
		return s.Stream.Write(data)
	}
	n, err := s.conn.Write(data)
	if err != nil {
		return n, classifyTlsError(err)
	}
	return n, nil
}

// CanRead reports the number of bytes immediately readable. In the
// [NonEncrypted] state this is the underlying stream's count. Go's
// crypto/tls exposes no pending-plaintext counter, so in the [Encrypted]
// state CanRead always returns 0, even when decrypted data is buffered.
func (s *Socket) CanRead() (int, error) {
	if s.state != Encrypted {
		return s.Stream.CanRead()
	}
	return 0, nil
}

// Disconnect sends a close_notify alert (when [Encrypted]) and then
// delegates to the underlying stream's lingering close.
func (s *Socket) Disconnect() error {
	if s.state == Encrypted && s.conn != nil {
		_ = s.conn.Close()
		s.state = NonEncrypted
		return nil
	}
	return s.Stream.Disconnect()
}

// CipherSuite returns the name of the negotiated cipher suite, or "" if
// not yet [Encrypted].
func (s *Socket) CipherSuite() string {
	if s.state != Encrypted {
		return ""
	}
	return tls.CipherSuiteName(s.conn.ConnectionState().CipherSuite)
}

// NegotiatedProtocol returns the ALPN protocol negotiated during the
// handshake, or "" if none was negotiated or not yet [Encrypted].
func (s *Socket) NegotiatedProtocol() string {
	if s.state != Encrypted {
		return ""
	}
	return s.conn.ConnectionState().NegotiatedProtocol
}

func (s *Socket) log() netcore.SLogger {
	if s.Logger == nil {
		return netcore.DefaultSLogger()
	}
	return s.Logger
}

// verifyPeerCertificate implements the spec's callback sequence: depth
// check, chain verification against Config.RootCAs, leaf SAN hostname
// glob match, then the CRL and OCSP stubs.
func (s *Socket) verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if s.MaxDepth >= 0 && len(rawCerts) > s.MaxDepth+1 {
		return fmt.Errorf("%w: chain depth %d exceeds max %d", ErrVerificationFailed, len(rawCerts)-1, s.MaxDepth)
	}
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no certificate presented", ErrVerificationFailed)
	}

	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	opts := x509.VerifyOptions{
		Roots:         s.Config.RootCAs,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	for _, raw := range rawCerts[1:] {
		if cert, err := x509.ParseCertificate(raw); err == nil {
			opts.Intermediates.AddCert(cert)
		}
	}
	if _, err := leaf.Verify(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if s.serverName != "" && !matchesAnySAN(leaf.DNSNames, s.serverName) {
		return fmt.Errorf("%w: %s does not match any SAN entry", ErrVerificationFailed, s.serverName)
	}

	if err := checkCRL(leaf); err != nil {
		return err
	}
	return checkOCSP(leaf)
}

// checkCRL is a stub that accepts every certificate: no CRL is consulted,
// and callers have no hook to replace the check.
func checkCRL(_ *x509.Certificate) error {
	return nil
}

// checkOCSP is a stub; see [checkCRL].
func checkOCSP(_ *x509.Certificate) error {
	return nil
}

// matchesAnySAN reports whether host matches any of names, using
// glob-style matching for a single leading "*" label (e.g.
// "*.example.com" matches "www.example.com"). A trailing dot on host is
// stripped before comparison.
func matchesAnySAN(names []string, host string) bool {
	host = strings.TrimSuffix(host, ".")
	for _, name := range names {
		if matchesSAN(name, host) {
			return true
		}
	}
	return false
}

func matchesSAN(pattern, host string) bool {
	pattern = strings.TrimSuffix(pattern, ".")
	if !strings.HasPrefix(pattern, "*.") {
		return strings.EqualFold(pattern, host)
	}
	suffix := pattern[1:] // ".example.com"
	hostLabels := strings.SplitN(host, ".", 2)
	if len(hostLabels) != 2 {
		return false
	}
	return strings.EqualFold("."+hostLabels[1], suffix)
}

func classifyTlsError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return ErrTlsCloseNotifyAlert
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTlsProtocolError, err)
}

func lookupCipherSuites(list string) []uint16 {
	var ids []uint16
	all := append(tls.CipherSuites(), tls.InsecureCipherSuites()...)
	for _, name := range strings.Split(list, ":") {
		name = strings.TrimSpace(name)
		for _, suite := range all {
			if strings.EqualFold(suite.Name, name) {
				ids = append(ids, suite.ID)
				break
			}
		}
	}
	return ids
}

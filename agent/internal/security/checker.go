package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/wetterblick/uploader/agent/internal/config"
)

const dialTimeout = 10 * time.Second

// Certificate states reported in CertStatus.Status.
const (
	CertValid       = "valid"
	CertExpiring    = "expiring"
	CertExpired     = "expired"
	CertUnreachable = "unreachable"
)

// expiringWithin is the window in which a certificate counts as expiring.
const expiringWithin = 30

// CertStatus describes the leaf certificate of the upload endpoint.
type CertStatus struct {
	Endpoint string
	Status   string
	Issuer   string
	NotAfter time.Time
	DaysLeft int
}

// Check dials the TLS endpoint of serverURL and reports its leaf certificate.
// It returns nil for non-HTTPS URLs.
func Check(ctx context.Context, serverURL string, insecureSkipVerify bool) *CertStatus {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}
	cs := &CertStatus{Endpoint: serverURL}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec
		},
	}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = CertUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = CertUnreachable
		return cs
	}

	leaf := peerCerts[0]
	daysLeft := time.Until(leaf.NotAfter).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		cs.Status = CertExpired
	case daysLeft <= expiringWithin:
		cs.Status = CertExpiring
	default:
		cs.Status = CertValid
	}
	return cs
}

// Audit returns warnings for upload settings that put the password at risk.
func Audit(u config.UploadConfig) []string {
	var warnings []string
	if parsed, err := url.Parse(u.ServerURL); err == nil && parsed.Scheme == "http" {
		warnings = append(warnings, "upload.server_url uses plain http, the password is sent unencrypted")
	}
	if u.InsecureSkipVerify {
		warnings = append(warnings, "upload.insecure_skip_verify is set, the endpoint certificate is not verified")
	}
	if u.PasswordEnv == "" && u.Password != "" {
		warnings = append(warnings, "upload.password is stored in the config file, prefer upload.password_env")
	}
	return warnings
}

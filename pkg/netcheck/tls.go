package netcheck

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// TLSDialer abstracts a verified TLS handshake for testability.
type TLSDialer interface {
	Handshake(ctx context.Context, host string, port int, timeout time.Duration) error
}

// RealTLSDialer completes a handshake against the system roots.
type RealTLSDialer struct{}

func (RealTLSDialer) Handshake(ctx context.Context, host string, port int, timeout time.Duration) error {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

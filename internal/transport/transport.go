// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package transport provides the byte-stream adapters the SRPC dispatcher
// rides on: plain TCP and TLS connections to a SUPLA cloud server, with
// optional DSCP marking of the outbound socket.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// Adapter is the narrow interface the dispatcher needs from a transport. It
// is satisfied by *Conn and by fakes in tests.
type Adapter interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetDeadline(t time.Time) error
}

// Options configures how a connection to the server is established.
type Options struct {
	// UseTLS selects TLS vs plain TCP.
	UseTLS bool
	// ServerCertCAPath, when non-empty, loads an additional trusted CA for
	// validating the server certificate (on top of the system pool).
	ServerCertCAPath string
	// InsecureSkipVerify disables server certificate validation; only ever
	// meant for local development against a self-signed test server.
	InsecureSkipVerify bool
	// DSCP is an RFC 2474/4594 DSCP name (e.g. "EF", "AF41"), or empty to
	// leave the socket's TOS byte untouched.
	DSCP string
	// DialTimeout bounds how long Dial waits for the TCP/TLS handshake.
	DialTimeout time.Duration
}

// Conn wraps a net.Conn with the deadline and close semantics the
// dispatcher expects.
type Conn struct {
	net.Conn
}

// Dial connects to addr (host:port) according to opts. DSCP marking, where
// requested, is applied to the raw TCP socket before any TLS handshake so
// it also covers the handshake packets themselves.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}

	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	if opts.DSCP != "" {
		dscp, dscpErr := ParseDSCP(opts.DSCP)
		if dscpErr != nil {
			rawConn.Close()
			return nil, dscpErr
		}
		if applyErr := applyDSCP(rawConn, dscp); applyErr != nil {
			rawConn.Close()
			return nil, applyErr
		}
	}

	if !opts.UseTLS {
		return &Conn{Conn: rawConn}, nil
	}

	tlsCfg, err := tlsConfig(opts)
	if err != nil {
		rawConn.Close()
		return nil, err
	}
	host, _, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		host = addr
	}
	tlsCfg.ServerName = host

	tlsConn := tls.Client(rawConn, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("transport: TLS handshake with %s: %w", addr, err)
	}
	return &Conn{Conn: tlsConn}, nil
}

func tlsConfig(opts Options) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	if opts.ServerCertCAPath != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(opts.ServerCertCAPath)
		if err != nil {
			return nil, fmt.Errorf("transport: reading server CA: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: parsing server CA %s", opts.ServerCertCAPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

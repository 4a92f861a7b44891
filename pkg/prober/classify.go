// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package prober

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
)

// classifyTransportError buckets a failed request into the exception
// taxonomy. net/http does not expose a fine-grained typed error hierarchy,
// so this inspects the wrapped error chain and falls back to a
// message-substring check before giving up and returning Unknown.
func classifyTransportError(err error) string {
	if err == nil {
		return "Unknown"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "ClientConnectorError"
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ClientConnectorError"
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return "ClientConnectorError"
	}

	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return "ClientOSError"
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "ServerDisconnectedError"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"):
		return "ClientConnectorError"
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "eof"):
		return "ServerDisconnectedError"
	case strings.Contains(msg, "malformed http"),
		strings.Contains(msg, "too many redirects"),
		strings.Contains(msg, "unsupported protocol scheme"):
		return "ClientResponseError"
	case strings.Contains(msg, "too many open files"):
		return "ClientOSError"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "ClientResponseError"
	}

	return "Unknown"
}

// otherReason labels a status code this probe doesn't have a dedicated
// class for.
func otherReason(status int) string {
	return fmt.Sprintf("Other(%d)", status)
}

// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package transfer

import (
	"fmt"
	"net"
	"strings"
)

// ParseHostPort splits a host string into host and port. It accepts bare
// hostnames, host:port, bracketed and bare IPv6 addresses, and an optional
// user@ prefix, which is dropped. The port is empty when the input carries
// none.
func ParseHostPort(in string) (host, port string, err error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return "", "", fmt.Errorf("empty host")
	}
	if at := strings.LastIndex(s, "@"); at != -1 {
		s = s[at+1:]
	}
	if strings.HasPrefix(s, "[") {
		if h, p, err := net.SplitHostPort(s); err == nil {
			return h, p, nil
		}
		end := strings.Index(s, "]")
		if end < 0 {
			return "", "", fmt.Errorf("invalid host %q", in)
		}
		return s[1:end], "", nil
	}
	// A bare IPv6 address has more than one colon and no brackets.
	if strings.Count(s, ":") > 1 {
		return s, "", nil
	}
	if h, p, err := net.SplitHostPort(s); err == nil {
		return h, p, nil
	}
	return s, "", nil
}

// JoinHostPort joins host and port, falling back to defaultPort when port is
// empty. IPv6 addresses come out bracketed.
func JoinHostPort(host, port, defaultPort string) string {
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

// CanonicalizeHostPort normalizes a host string into host:port form with the
// SSH default port 22.
func CanonicalizeHostPort(in string) string {
	host, port, err := ParseHostPort(in)
	if err != nil {
		return in
	}
	return JoinHostPort(host, port, "22")
}

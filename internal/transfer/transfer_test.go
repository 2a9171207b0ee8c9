// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package transfer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/bnrobert/gobro/internal/db"
)

func TestParseHostPort(t *testing.T) {
	cases := []struct {
		in    string
		host  string
		port  string
		canon string
	}{
		{"dropbox.example.org", "dropbox.example.org", "", "dropbox.example.org:22"},
		{"dropbox.example.org:2222", "dropbox.example.org", "2222", "dropbox.example.org:2222"},
		{"10.0.0.5", "10.0.0.5", "", "10.0.0.5:22"},
		{"10.0.0.5:2200", "10.0.0.5", "2200", "10.0.0.5:2200"},
		{"[2001:db8::1]", "2001:db8::1", "", "[2001:db8::1]:22"},
		{"[2001:db8::1]:2200", "2001:db8::1", "2200", "[2001:db8::1]:2200"},
		{"2001:db8::1", "2001:db8::1", "", "[2001:db8::1]:22"},
		{"research@dropbox.example.org", "dropbox.example.org", "", "dropbox.example.org:22"},
		{"research@[2001:db8::1]:2222", "2001:db8::1", "2222", "[2001:db8::1]:2222"},
	}
	for _, c := range cases {
		h, p, err := ParseHostPort(c.in)
		if err != nil {
			t.Fatalf("ParseHostPort(%q): %v", c.in, err)
		}
		if h != c.host || p != c.port {
			t.Errorf("ParseHostPort(%q) = %q,%q, want %q,%q", c.in, h, p, c.host, c.port)
		}
		if canon := CanonicalizeHostPort(c.in); canon != c.canon {
			t.Errorf("CanonicalizeHostPort(%q) = %q, want %q", c.in, canon, c.canon)
		}
	}
	if _, _, err := ParseHostPort("  "); err == nil {
		t.Error("ParseHostPort accepted a blank spec")
	}
}

func TestConfigAddr(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Host: "dropbox.example.org"}, "dropbox.example.org:22"},
		{Config{Host: "dropbox.example.org", Port: 2222}, "dropbox.example.org:2222"},
		{Config{Host: "dropbox.example.org:2200", Port: 9999}, "dropbox.example.org:2200"},
		{Config{Host: "2001:db8::1", Port: 2200}, "[2001:db8::1]:2200"},
	}
	for _, c := range cases {
		got, err := c.cfg.Addr()
		if err != nil {
			t.Fatalf("Addr(%+v): %v", c.cfg, err)
		}
		if got != c.want {
			t.Errorf("Addr(%+v) = %q, want %q", c.cfg, got, c.want)
		}
	}
}

func TestErrorClassifiers(t *testing.T) {
	cases := []struct {
		err     error
		timeout bool
		refused bool
		auth    bool
		hostKey bool
	}{
		{nil, false, false, false, false},
		{errors.New("dial tcp: i/o timeout"), true, false, false, false},
		{errors.New("context deadline exceeded"), true, false, false, false},
		{errors.New("dial tcp: connection refused"), false, true, false, false},
		{errors.New("no route to host"), false, true, false, false},
		{errors.New("ssh: unable to authenticate, attempted methods [publickey]"), false, false, true, false},
		{errors.New("permission denied (publickey)"), false, false, true, false},
		{errors.New("!!! HOST KEY MISMATCH FOR pacs !!!"), false, false, false, true},
		{errors.New("unknown host key for pacs"), false, false, false, true},
	}
	for _, c := range cases {
		if got := IsConnectionTimeoutError(c.err); got != c.timeout {
			t.Errorf("IsConnectionTimeoutError(%v) = %v", c.err, got)
		}
		if got := IsConnectionRefusedError(c.err); got != c.refused {
			t.Errorf("IsConnectionRefusedError(%v) = %v", c.err, got)
		}
		if got := IsAuthenticationError(c.err); got != c.auth {
			t.Errorf("IsAuthenticationError(%v) = %v", c.err, got)
		}
		if got := IsHostKeyError(c.err); got != c.hostKey {
			t.Errorf("IsHostKeyError(%v) = %v", c.err, got)
		}
	}
}

func TestClassifyConnectionError(t *testing.T) {
	if ClassifyConnectionError("h", nil) != nil {
		t.Error("ClassifyConnectionError(nil) != nil")
	}
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("i/o timeout"), "connection to dropbox timed out"},
		{errors.New("connection refused"), "connection to dropbox refused"},
		{errors.New("ssh: unable to authenticate"), "authentication failed for dropbox"},
		{errors.New("unknown host key for dropbox"), "host key verification failed for dropbox"},
		{errors.New("something odd"), "failed to connect to dropbox"},
	}
	for _, c := range cases {
		got := ClassifyConnectionError("dropbox", c.err)
		if got == nil || !strings.Contains(got.Error(), c.want) {
			t.Errorf("ClassifyConnectionError(%v) = %v, want fragment %q", c.err, got, c.want)
		}
		if !errors.Is(got, c.err) {
			t.Errorf("ClassifyConnectionError(%v) does not wrap the cause", c.err)
		}
	}
}

func TestIsAnonymizedPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/data/anonymized/3FAD/CT/img.dcm", true},
		{"/data/study_anonymized/img.dcm", true},
		{"/data/scan_anonymized.dcm", true},
		{"anonymized", true},
		{"/data/raw/img.dcm", false},
		{"/data/anon/img.dcm", false},
	}
	for _, c := range cases {
		if got := IsAnonymizedPath(c.path); got != c.want {
			t.Errorf("IsAnonymizedPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func testHostKey(t *testing.T) (ssh.PublicKey, string) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	return sshPub, string(ssh.MarshalAuthorizedKey(sshPub))
}

func TestVerifyHostKey(t *testing.T) {
	if _, err := db.New("sqlite", filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("db.New: %v", err)
	}
	trusted, trustedLine := testHostKey(t)
	if err := db.AddKnownHostKey("dropbox.example.org", trustedLine); err != nil {
		t.Fatalf("AddKnownHostKey: %v", err)
	}

	if err := verifyHostKey("dropbox.example.org:22", trusted); err != nil {
		t.Errorf("trusted key rejected: %v", err)
	}
	if err := verifyHostKey("dropbox.example.org", trusted); err != nil {
		t.Errorf("trusted key rejected without port: %v", err)
	}

	err := verifyHostKey("other.example.org:22", trusted)
	if err == nil || !strings.Contains(err.Error(), "trust-host") {
		t.Errorf("unknown host error = %v, want a pointer to trust-host", err)
	}

	imposter, _ := testHostKey(t)
	err = verifyHostKey("dropbox.example.org:22", imposter)
	if err == nil || !IsHostKeyError(err) {
		t.Errorf("mismatched key error = %v, want a host key error", err)
	}
}

func TestFingerprint(t *testing.T) {
	key, _ := testHostKey(t)
	fp := Fingerprint(key)
	if !strings.HasPrefix(fp, "SHA256:") {
		t.Errorf("Fingerprint = %q, want SHA256: prefix", fp)
	}
}

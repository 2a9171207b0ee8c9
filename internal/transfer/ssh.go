// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package transfer uploads anonymized DICOM data to a collaborator drop box
// over SFTP. Host keys are verified against the known_hosts table; trust is
// established once with 'gobro trust-host'.
package transfer // import "github.com/bnrobert/gobro/internal/transfer"

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/fsutil"
)

// DefaultDialTimeout bounds the SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// Config describes the collaborator drop box endpoint. It maps onto the
// push.* configuration keys.
type Config struct {
	Host      string
	Port      int
	User      string
	RemoteDir string
	KeyFile   string
}

// Pusher holds an open SSH connection and SFTP session to the drop box.
type Pusher struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// PushResult summarizes a directory push.
type PushResult struct {
	Total  int
	Pushed int
	Failed int
	Errors []error
}

// verifyHostKey checks a presented host key against the known_hosts table.
// Unknown hosts are rejected so the first contact goes through 'gobro
// trust-host' deliberately.
func verifyHostKey(hostname string, key ssh.PublicKey) error {
	// The callback may receive host:port; known_hosts is keyed by bare host.
	host, _, err := net.SplitHostPort(hostname)
	if err != nil {
		host = hostname
	}

	presented := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))

	known, err := db.GetKnownHostKey(host)
	if err != nil {
		return fmt.Errorf("query known_hosts: %w", err)
	}
	if known == "" {
		return fmt.Errorf("unknown host key for %s, run 'gobro trust-host' to trust it", host)
	}
	if strings.TrimSpace(known) != presented {
		return fmt.Errorf("!!! HOST KEY MISMATCH FOR %s !!!\nRemote key presented: %s\nThis could be a man-in-the-middle attack", host, presented)
	}
	return nil
}

// Addr resolves the dial address from Host and Port, defaulting to port 22.
func (c Config) Addr() (string, error) {
	host, port, err := ParseHostPort(c.Host)
	if err != nil {
		return "", err
	}
	if port == "" && c.Port > 0 {
		port = strconv.Itoa(c.Port)
	}
	return JoinHostPort(host, port, "22"), nil
}

// NewPusher opens an SSH connection to the drop box and starts an SFTP
// session. Authentication tries the configured key file first and falls back
// to the SSH agent.
func NewPusher(cfg Config) (*Pusher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("no drop box host configured, set push.host")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("no drop box user configured, set push.user")
	}
	addr, err := cfg.Addr()
	if err != nil {
		return nil, err
	}

	hostKeyCallback := func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return verifyHostKey(hostname, key)
	}

	var authErr error
	if cfg.KeyFile != "" {
		keyBytes, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", cfg.KeyFile, err)
		}
		client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         DefaultDialTimeout,
		})
		if err == nil {
			return newPusher(client)
		}
		if !IsAuthenticationError(err) {
			return nil, ClassifyConnectionError(cfg.Host, err)
		}
		// Key was rejected; keep the error and try the agent.
		authErr = err
	}

	agentClient := getSSHAgent()
	if agentClient == nil {
		if authErr != nil {
			return nil, fmt.Errorf("key file authentication failed and no SSH agent available: %w", authErr)
		}
		return nil, fmt.Errorf("no authentication method available (no key file configured and no SSH agent found)")
	}

	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         DefaultDialTimeout,
	})
	if err != nil {
		return nil, ClassifyConnectionError(cfg.Host, err)
	}
	return newPusher(client)
}

func newPusher(client *ssh.Client) (*Pusher, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start sftp session: %w", err)
	}
	return &Pusher{client: client, sftp: sftpClient}, nil
}

// Close shuts down the SFTP session and the SSH connection.
func (p *Pusher) Close() {
	if p.sftp != nil {
		_ = p.sftp.Close()
	}
	if p.client != nil {
		_ = p.client.Close()
	}
}

// PushFile uploads one local file to remotePath, creating parent directories
// as needed. The data goes to a temporary name first and is renamed into
// place so the drop box never sees a half-written file.
func (p *Pusher) PushFile(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := p.sftp.MkdirAll(dir); err != nil {
			return fmt.Errorf("create remote directory %s: %w", dir, err)
		}
	}

	tmpPath := fmt.Sprintf("%s.gobro.%d", remotePath, time.Now().UnixNano())
	f, err := p.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create remote file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = p.sftp.Remove(tmpPath)
		return fmt.Errorf("upload %s: %w", localPath, err)
	}
	if err := f.Close(); err != nil {
		_ = p.sftp.Remove(tmpPath)
		return fmt.Errorf("close remote file: %w", err)
	}
	if err := p.sftp.Chmod(tmpPath, 0o644); err != nil {
		_ = p.sftp.Remove(tmpPath)
		return fmt.Errorf("chmod remote file: %w", err)
	}

	// PosixRename overwrites atomically on OpenSSH; plain rename covers
	// servers without the extension.
	if err := p.sftp.PosixRename(tmpPath, remotePath); err != nil {
		if err2 := p.sftp.Rename(tmpPath, remotePath); err2 != nil {
			_ = p.sftp.Remove(tmpPath)
			return fmt.Errorf("rename into place: %w", err2)
		}
	}
	return nil
}

// PushDir uploads every file under localDir into remoteDir, preserving the
// relative layout. progress, when non-nil, is called after each file.
func (p *Pusher) PushDir(localDir, remoteDir string, progress func(done, total int, path string, err error)) (*PushResult, error) {
	if !fsutil.CheckDir(localDir) {
		return nil, fmt.Errorf("unsupported directory: %s", localDir)
	}
	files, err := fsutil.ListFiles(localDir, true, nil)
	if err != nil {
		return nil, err
	}
	absDir, err := filepath.Abs(localDir)
	if err != nil {
		return nil, err
	}

	res := &PushResult{Total: len(files)}
	for _, local := range files {
		rel, err := filepath.Rel(absDir, local)
		if err != nil {
			rel = filepath.Base(local)
		}
		remote := path.Join(remoteDir, filepath.ToSlash(rel))
		err = p.PushFile(local, remote)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", local, err))
		} else {
			res.Pushed++
		}
		if progress != nil {
			progress(res.Pushed+res.Failed, res.Total, local, err)
		}
	}
	return res, nil
}

// IsAnonymizedPath reports whether p lives in an anonymized output tree or
// carries the anonymized filename suffix. Pushes outside such trees need
// --force.
func IsAnonymizedPath(p string) bool {
	clean := filepath.ToSlash(filepath.Clean(p))
	for _, part := range strings.Split(clean, "/") {
		if strings.Contains(strings.ToLower(part), "anonymized") {
			return true
		}
	}
	return false
}

// GetRemoteHostKey connects to a host just to retrieve its public key. The
// handshake is aborted as soon as the key has been captured.
func GetRemoteHostKey(host string) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)

	config := &ssh.ClientConfig{
		User: "gobro-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			keyChan <- key
			return fmt.Errorf("gobro: successfully retrieved host key")
		},
		Timeout: 5 * time.Second,
	}

	addr := CanonicalizeHostPort(host)
	_, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if strings.Contains(err.Error(), "gobro: successfully retrieved host key") {
			return <-keyChan, nil
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	return nil, fmt.Errorf("handshake completed without capturing a host key")
}

// Fingerprint returns the SHA256 fingerprint of a host key, in the format
// OpenSSH prints.
func Fingerprint(key ssh.PublicKey) string {
	return ssh.FingerprintSHA256(key)
}

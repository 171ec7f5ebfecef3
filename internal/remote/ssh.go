// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package remote

import (
	"bytes"
	"context"
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/masterzen/winrm"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/juju/vmmigrate/core/migration"
)

const (
	// DefaultSSHPort is the port of the OpenSSH server.
	DefaultSSHPort = 22

	// DefaultSSHDialTimeout bounds establishing the SSH connection.
	DefaultSSHDialTimeout = 30 * time.Second
)

// SSHConfig holds the transport options of an SSHRunner.
type SSHConfig struct {
	// KnownHostsFile is an OpenSSH known_hosts file used to verify the
	// conversion host. When empty the host key is not verified.
	KnownHostsFile string

	// DialTimeout overrides DefaultSSHDialTimeout when set.
	DialTimeout time.Duration

	Logger Logger
}

// Validate returns an error if the config cannot be used.
func (c SSHConfig) Validate() error {
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.DialTimeout < 0 {
		return errors.NotValidf("negative DialTimeout")
	}
	return nil
}

// SSHRunner runs scripts on conversion hosts that expose the Windows
// OpenSSH server, authenticating with a password.
type SSHRunner struct {
	config          SSHConfig
	hostKeyCallback ssh.HostKeyCallback
}

// NewSSHRunner returns a runner for the given transport options.
func NewSSHRunner(config SSHConfig) (*SSHRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultSSHDialTimeout
	}
	callback := ssh.InsecureIgnoreHostKey()
	if config.KnownHostsFile != "" {
		var err error
		if callback, err = knownhosts.New(config.KnownHostsFile); err != nil {
			return nil, errors.Annotatef(err, "reading known hosts %q", config.KnownHostsFile)
		}
	} else {
		config.Logger.Warningf("conversion host keys will not be verified")
	}
	return &SSHRunner{
		config:          config,
		hostKeyCallback: callback,
	}, nil
}

// Run executes the PowerShell script on the conversion host. A non-zero
// exit status is reported through the result.
func (r *SSHRunner) Run(ctx context.Context, host migration.ConversionHost, script string) (migration.ConversionResult, error) {
	addr := hostPort(host, DefaultSSHPort)
	dialer := net.Dialer{Timeout: r.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return migration.ConversionResult{}, transportError(err, addr)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{ssh.Password(host.Password)},
		HostKeyCallback: r.hostKeyCallback,
		Timeout:         r.config.DialTimeout,
	})
	if err != nil {
		_ = conn.Close()
		return migration.ConversionResult{}, transportError(err, addr)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return migration.ConversionResult{}, transportError(err, addr)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	r.config.Logger.Debugf("running conversion script on %s as %s", addr, host.User)
	done := make(chan error, 1)
	go func() {
		done <- session.Run(winrm.Powershell(script))
	}()

	select {
	case <-ctx.Done():
		_ = client.Close()
		<-done
		return migration.ConversionResult{}, errors.Annotatef(ctx.Err(), "running script on %s", addr)
	case err = <-done:
	}

	exitCode := 0
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitStatus()
	} else if err != nil {
		return migration.ConversionResult{}, transportError(err, addr)
	}
	r.config.Logger.Debugf("conversion script on %s exited with %d", addr, exitCode)
	return migration.ConversionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

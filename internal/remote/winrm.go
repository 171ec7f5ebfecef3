// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package remote

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/masterzen/winrm"

	"github.com/juju/vmmigrate/core/migration"
)

const (
	// DefaultWinRMPort is the port of the WinRM HTTP listener.
	DefaultWinRMPort = 5985

	// DefaultWinRMTimeout bounds a single WinRM operation. Disk
	// conversion and upload can take hours.
	DefaultWinRMTimeout = 6 * time.Hour
)

// WinRMConfig holds the transport options of a WinRMRunner.
type WinRMConfig struct {
	// HTTPS selects the WinRM HTTPS listener.
	HTTPS bool

	// Insecure skips verification of the listener certificate.
	Insecure bool

	// CACert is a PEM encoded certificate to verify the listener with.
	CACert []byte

	// Timeout overrides DefaultWinRMTimeout when set.
	Timeout time.Duration

	Logger Logger
}

// Validate returns an error if the config cannot be used.
func (c WinRMConfig) Validate() error {
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.Timeout < 0 {
		return errors.NotValidf("negative Timeout")
	}
	return nil
}

// commandRunner is the part of the WinRM client used by the runner.
type commandRunner interface {
	RunWithContext(ctx context.Context, command string, stdout, stderr io.Writer) (int, error)
}

type clientFunc func(endpoint *winrm.Endpoint, user, password string) (commandRunner, error)

func newNTLMClient(endpoint *winrm.Endpoint, user, password string) (commandRunner, error) {
	params := *winrm.DefaultParameters
	params.TransportDecorator = func() winrm.Transporter {
		return &winrm.ClientNTLM{}
	}
	client, err := winrm.NewClientWithParameters(endpoint, user, password, &params)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return client, nil
}

// WinRMRunner runs scripts over WinRM with NTLM negotiate
// authentication.
type WinRMRunner struct {
	config    WinRMConfig
	newClient clientFunc
}

// NewWinRMRunner returns a runner for the given transport options.
func NewWinRMRunner(config WinRMConfig) (*WinRMRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultWinRMTimeout
	}
	return &WinRMRunner{
		config:    config,
		newClient: newNTLMClient,
	}, nil
}

// Run executes the PowerShell script on the conversion host. A script
// that ran to completion is reported through the result regardless of
// its exit code; an error is returned only if the host could not be
// reached or refused the credentials.
func (r *WinRMRunner) Run(ctx context.Context, host migration.ConversionHost, script string) (migration.ConversionResult, error) {
	addr := hostPort(host, DefaultWinRMPort)
	endpoint := winrm.NewEndpoint(
		host.Address, portOf(host, DefaultWinRMPort), r.config.HTTPS, r.config.Insecure,
		r.config.CACert, nil, nil, r.config.Timeout,
	)
	client, err := r.newClient(endpoint, host.User, host.Password)
	if err != nil {
		return migration.ConversionResult{}, transportError(err, addr)
	}

	r.config.Logger.Debugf("running conversion script on %s as %s", addr, host.User)
	var stdout, stderr bytes.Buffer
	exitCode, err := client.RunWithContext(ctx, winrm.Powershell(script), &stdout, &stderr)
	if err != nil {
		return migration.ConversionResult{}, transportError(err, addr)
	}
	r.config.Logger.Debugf("conversion script on %s exited with %d", addr, exitCode)
	return migration.ConversionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

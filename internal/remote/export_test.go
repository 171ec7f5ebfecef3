// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package remote

import (
	"github.com/masterzen/winrm"
)

type CommandRunner = commandRunner

// PatchWinRMClient replaces the WinRM client constructor of the runner.
func PatchWinRMClient(r *WinRMRunner, f func(endpoint *winrm.Endpoint, user, password string) (CommandRunner, error)) {
	r.newClient = f
}

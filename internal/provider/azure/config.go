// Copyright 2015 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azure

import (
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

const (
	// DefaultPollFrequency is how often long running operations are
	// polled. Azure does not accept less than a second.
	DefaultPollFrequency = 5 * time.Second

	// DefaultResolveDelay is the initial delay between attempts to read
	// back a resource that was just created.
	DefaultResolveDelay = 2 * time.Second

	// DefaultResolveAttempts bounds the attempts to read back a
	// resource that was just created.
	DefaultResolveAttempts = 10

	// resourceNameLengthMax is the maximum length of resource
	// names in Azure.
	resourceNameLengthMax = 80
)

// Logger represents the logging methods called.
type Logger interface {
	Debugf(message string, args ...any)
	Infof(message string, args ...any)
	Warningf(message string, args ...any)
}

// ProvisionerConfig holds the dependencies and options of a
// Provisioner.
type ProvisionerConfig struct {
	// Credential authenticates requests to Azure Resource Manager.
	Credential azcore.TokenCredential

	// SubscriptionID is the subscription resources are created in.
	SubscriptionID string

	// ClientOptions are passed to every ARM client. Tests use them to
	// replace the transport.
	ClientOptions *arm.ClientOptions

	Clock  clock.Clock
	Logger Logger

	PollFrequency   time.Duration
	ResolveDelay    time.Duration
	ResolveAttempts int

	// NewUUID generates the suffix of a new OS disk blob. It defaults to
	// uuid.NewRandom.
	NewUUID func() (uuid.UUID, error)
}

// Validate returns an error if the config cannot be used.
func (config ProvisionerConfig) Validate() error {
	if config.Credential == nil {
		return errors.NotValidf("nil Credential")
	}
	if config.SubscriptionID == "" {
		return errors.NotValidf("empty SubscriptionID")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.PollFrequency != 0 && config.PollFrequency < time.Second {
		return errors.NotValidf("PollFrequency %v", config.PollFrequency)
	}
	if config.ResolveDelay < 0 {
		return errors.NotValidf("negative ResolveDelay")
	}
	if config.ResolveAttempts < 0 {
		return errors.NotValidf("negative ResolveAttempts")
	}
	return nil
}

func (config ProvisionerConfig) withDefaults() ProvisionerConfig {
	if config.PollFrequency == 0 {
		config.PollFrequency = DefaultPollFrequency
	}
	if config.ResolveDelay == 0 {
		config.ResolveDelay = DefaultResolveDelay
	}
	if config.ResolveAttempts == 0 {
		config.ResolveAttempts = DefaultResolveAttempts
	}
	if config.NewUUID == nil {
		config.NewUUID = uuid.NewRandom
	}
	return config
}

// ServicePrincipal holds the client secret credentials of an Azure
// service principal.
type ServicePrincipal struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Validate returns an error if a field is missing.
func (sp ServicePrincipal) Validate() error {
	if sp.TenantID == "" {
		return errors.NotValidf("empty TenantID")
	}
	if sp.ClientID == "" {
		return errors.NotValidf("empty ClientID")
	}
	if sp.ClientSecret == "" {
		return errors.NotValidf("empty ClientSecret")
	}
	return nil
}

// NewCredential returns a token credential for the service principal.
func NewCredential(sp ServicePrincipal, options *azidentity.ClientSecretCredentialOptions) (azcore.TokenCredential, error) {
	if err := sp.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	cred, err := azidentity.NewClientSecretCredential(sp.TenantID, sp.ClientID, sp.ClientSecret, options)
	if err != nil {
		return nil, errors.Annotate(err, "creating client secret credential")
	}
	return cred, nil
}

// canonicalLocation returns the canonicalized location string. This involves
// stripping whitespace, and lowercasing. The ARM APIs do not support embedded
// whitespace, whereas the old Service Management APIs used to; we allow the
// user to provide either, and canonicalize them to one form that ARM allows.
func canonicalLocation(s string) string {
	s = strings.Replace(s, " ", "", -1)
	return strings.ToLower(s)
}

// dnsLabel returns name as a DNS label: lower case letters, digits and
// hyphens, starting with a letter and not ending with a hyphen.
func dnsLabel(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteRune('-')
		}
	}
	label := strings.TrimLeft(b.String(), "-0123456789")
	if len(label) > 63 {
		label = label[:63]
	}
	return strings.TrimRight(label, "-")
}

// checkResourceName returns an error if name cannot name an Azure
// resource.
func checkResourceName(kind, name string) error {
	if name == "" {
		return errors.NotValidf("empty %s name", kind)
	}
	if len(name) > resourceNameLengthMax {
		return errors.NotValidf("%s name %q longer than %d characters", kind, name, resourceNameLengthMax)
	}
	return nil
}

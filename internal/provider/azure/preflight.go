// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/juju/errors"

	"github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/azure/internal/errorutils"
)

// PreflightResult describes what the credential can see.
type PreflightResult struct {
	SubscriptionID   string `yaml:"subscription-id" json:"subscription-id"`
	SubscriptionName string `yaml:"subscription-name" json:"subscription-name"`
	State            string `yaml:"state" json:"state"`
	ResourceGroup    string `yaml:"resource-group" json:"resource-group"`
}

// Preflight checks that the subscription is enabled and visible to the
// credential, and that the resource group exists.
func (p *Provisioner) Preflight(ctx context.Context, resourceGroup string) (PreflightResult, error) {
	resp, err := p.subscriptions.Get(ctx, p.config.SubscriptionID, nil)
	if err != nil {
		if errorutils.IsAuthorisationFailure(err) {
			p.config.Logger.Warningf("credential cannot read subscription %q", p.config.SubscriptionID)
		}
		return PreflightResult{}, errorutils.Classify(err, fmt.Sprintf("reading subscription %q", p.config.SubscriptionID))
	}
	result := PreflightResult{
		SubscriptionID:   p.config.SubscriptionID,
		SubscriptionName: toValue(resp.DisplayName),
		State:            string(toValue(resp.State)),
		ResourceGroup:    resourceGroup,
	}
	if state := toValue(resp.State); state != armsubscriptions.SubscriptionStateEnabled {
		return result, migration.WithKind(
			errors.Errorf("subscription %q is %s", p.config.SubscriptionID, state),
			migration.ProvisioningError,
		)
	}

	exists, err := p.groups.CheckExistence(ctx, resourceGroup, nil)
	if err != nil {
		return result, errorutils.Classify(err, fmt.Sprintf("checking resource group %q", resourceGroup))
	}
	if !exists.Success {
		return result, migration.WithKind(
			errors.NotFoundf("resource group %q", resourceGroup),
			migration.DependencyError,
		)
	}
	return result, nil
}

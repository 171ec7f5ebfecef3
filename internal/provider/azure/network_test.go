// Copyright 2020 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azure_test

import (
	"context"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/azure"
	"github.com/juju/vmmigrate/internal/provider/azure/internal/azuretesting"
)

func vnet(resourceGroup, name, location string, subnets ...*armnetwork.Subnet) *armnetwork.VirtualNetwork {
	return &armnetwork.VirtualNetwork{
		ID:       to.Ptr("/subscriptions/" + subscriptionID + "/resourceGroups/" + resourceGroup + "/providers/Microsoft.Network/virtualNetworks/" + name),
		Name:     to.Ptr(name),
		Location: to.Ptr(location),
		Properties: &armnetwork.VirtualNetworkPropertiesFormat{
			Subnets: subnets,
		},
	}
}

func subnet(resourceGroup, vnetName, name string, props *armnetwork.SubnetPropertiesFormat) *armnetwork.Subnet {
	return &armnetwork.Subnet{
		ID: to.Ptr("/subscriptions/" + subscriptionID + "/resourceGroups/" + resourceGroup +
			"/providers/Microsoft.Network/virtualNetworks/" + vnetName + "/subnets/" + name),
		Name:       to.Ptr(name),
		Properties: props,
	}
}

func (s *provisionerSuite) TestListSubnets(c *gc.C) {
	firstPage := azuretesting.NewSenderWithValue(armnetwork.VirtualNetworkListResult{
		Value: []*armnetwork.VirtualNetwork{
			vnet("net", "vnet", "eastus2",
				subnet("net", "vnet", "default", &armnetwork.SubnetPropertiesFormat{
					AddressPrefix: to.Ptr("10.0.0.0/24"),
				}),
				subnet("net", "vnet", "dual", &armnetwork.SubnetPropertiesFormat{
					AddressPrefixes: []*string{to.Ptr("fd00::/64"), to.Ptr("10.0.1.0/24")},
				}),
				subnet("net", "vnet", "v6only", &armnetwork.SubnetPropertiesFormat{
					AddressPrefixes: []*string{to.Ptr("fd00:1::/64")},
				}),
			),
		},
		NextLink: to.Ptr("https://management.azure.com/subscriptions/" + subscriptionID +
			"/providers/Microsoft.Network/virtualNetworks?api-version=2022-07-01&$skiptoken=page2"),
	})
	firstPage.PathPattern = ".*/providers/Microsoft.Network/virtualNetworks$"
	secondPage := azuretesting.NewSenderWithValue(armnetwork.VirtualNetworkListResult{
		Value: []*armnetwork.VirtualNetwork{
			vnet("apps", "apps-vnet", "westeurope",
				subnet("apps", "apps-vnet", "frontend", &armnetwork.SubnetPropertiesFormat{
					AddressPrefix: to.Ptr("192.168.0.0/24"),
				}),
			),
		},
	})
	p := s.newProvisioner(c, firstPage, secondPage)

	subnets, err := p.ListSubnets(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(subnets, jc.DeepEquals, []azure.SubnetInfo{{
		ID:             "/subscriptions/" + subscriptionID + "/resourceGroups/apps/providers/Microsoft.Network/virtualNetworks/apps-vnet/subnets/frontend",
		Name:           "frontend",
		VirtualNetwork: "apps-vnet",
		ResourceGroup:  "apps",
		Location:       "westeurope",
		CIDR:           "192.168.0.0/24",
	}, {
		ID:             subnetID,
		Name:           "default",
		VirtualNetwork: "vnet",
		ResourceGroup:  "net",
		Location:       "eastus2",
		CIDR:           "10.0.0.0/24",
	}, {
		ID:             "/subscriptions/" + subscriptionID + "/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/vnet/subnets/dual",
		Name:           "dual",
		VirtualNetwork: "vnet",
		ResourceGroup:  "net",
		Location:       "eastus2",
		CIDR:           "10.0.1.0/24",
	}})
	c.Check(s.logger.Contains("v6only"), jc.IsTrue)
}

func (s *provisionerSuite) TestListSubnetsUnauthorised(c *gc.C) {
	p := s.newProvisioner(c, azuretesting.NewErrorSender(http.StatusForbidden, "AuthorizationFailed",
		"The client does not have authorization to perform action."))

	_, err := p.ListSubnets(context.Background())
	c.Check(err, gc.ErrorMatches, "listing virtual networks: AuthorizationFailed: .*")
	c.Check(errors.Is(err, migration.ProvisioningError), jc.IsTrue)
}

func (s *provisionerSuite) TestSubnetByName(c *gc.C) {
	subnets := []azure.SubnetInfo{
		{ID: "a", Name: "default", VirtualNetwork: "vnet"},
		{ID: "b", Name: "default", VirtualNetwork: "other"},
		{ID: "c", Name: "frontend", VirtualNetwork: "vnet"},
	}
	sub, err := azure.SubnetByName(subnets, "frontend")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(sub.ID, gc.Equals, "c")

	sub, err = azure.SubnetByName(subnets, "other/default")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(sub.ID, gc.Equals, "b")

	_, err = azure.SubnetByName(subnets, "default")
	c.Check(err, gc.ErrorMatches, `subnet name "default" is ambiguous, use virtual-network/subnet`)

	_, err = azure.SubnetByName(subnets, "backend")
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
}

func subscriptionSender(state armsubscriptions.SubscriptionState) *azuretesting.MockSender {
	sender := azuretesting.NewSenderWithValue(armsubscriptions.Subscription{
		ID:             to.Ptr("/subscriptions/" + subscriptionID),
		SubscriptionID: to.Ptr(subscriptionID),
		DisplayName:    to.Ptr("Migration"),
		State:          to.Ptr(state),
	})
	sender.PathPattern = "^/subscriptions/" + subscriptionID + "$"
	return sender
}

func resourceGroupSender(status int) *azuretesting.MockSender {
	sender := &azuretesting.MockSender{
		Method:      http.MethodHead,
		PathPattern: ".*/resourcegroups/migrated$",
	}
	sender.AppendResponse(status, "")
	return sender
}

func (s *provisionerSuite) TestPreflight(c *gc.C) {
	p := s.newProvisioner(c,
		subscriptionSender(armsubscriptions.SubscriptionStateEnabled),
		resourceGroupSender(http.StatusNoContent),
	)

	result, err := p.Preflight(context.Background(), resourceGroup)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(result, jc.DeepEquals, azure.PreflightResult{
		SubscriptionID:   subscriptionID,
		SubscriptionName: "Migration",
		State:            "Enabled",
		ResourceGroup:    resourceGroup,
	})
}

func (s *provisionerSuite) TestPreflightMissingResourceGroup(c *gc.C) {
	p := s.newProvisioner(c,
		subscriptionSender(armsubscriptions.SubscriptionStateEnabled),
		resourceGroupSender(http.StatusNotFound),
	)

	_, err := p.Preflight(context.Background(), resourceGroup)
	c.Check(err, gc.ErrorMatches, `resource group "migrated" not found`)
	c.Check(errors.Is(err, migration.DependencyError), jc.IsTrue)
}

func (s *provisionerSuite) TestPreflightDisabledSubscription(c *gc.C) {
	p := s.newProvisioner(c, subscriptionSender(armsubscriptions.SubscriptionStateDisabled))

	_, err := p.Preflight(context.Background(), resourceGroup)
	c.Check(err, gc.ErrorMatches, `subscription "`+subscriptionID+`" is Disabled`)
	c.Check(errors.Is(err, migration.ProvisioningError), jc.IsTrue)
	c.Check(s.senders.Requests(), gc.HasLen, 1)
}

func (s *provisionerSuite) TestPreflightUnauthorised(c *gc.C) {
	p := s.newProvisioner(c, azuretesting.NewErrorSender(http.StatusForbidden, "AuthorizationFailed",
		"The client does not have authorization to perform action."))

	_, err := p.Preflight(context.Background(), resourceGroup)
	c.Check(err, gc.ErrorMatches, `reading subscription "`+subscriptionID+`": AuthorizationFailed: The client does not have authorization to perform action.`)
	c.Check(s.logger.Contains("credential cannot read subscription"), jc.IsTrue)
}

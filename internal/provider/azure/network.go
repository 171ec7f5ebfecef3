// Copyright 2020 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azure

import (
	"context"
	"net/netip"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/juju/errors"

	"github.com/juju/vmmigrate/internal/provider/azure/internal/errorutils"
)

// SubnetInfo describes a subnet a migrated machine can be attached to.
type SubnetInfo struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	VirtualNetwork string `yaml:"virtual-network" json:"virtual-network"`
	ResourceGroup  string `yaml:"resource-group" json:"resource-group"`
	Location       string `yaml:"location" json:"location"`
	CIDR           string `yaml:"cidr" json:"cidr"`
}

// ListSubnets returns every subnet of every virtual network in the
// subscription, ordered by ID.
func (p *Provisioner) ListSubnets(ctx context.Context) ([]SubnetInfo, error) {
	var results []SubnetInfo
	pager := p.networks.NewListAllPager(nil)
	for pager.More() {
		next, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errorutils.Classify(err, "listing virtual networks")
		}
		for _, vnet := range next.Value {
			if vnet == nil || vnet.Properties == nil {
				continue
			}
			for _, sub := range vnet.Properties.Subnets {
				info, ok := subnetInfo(vnet, sub)
				if !ok {
					p.config.Logger.Debugf("ignoring subnet %q with no IPv4 address prefix", toValue(sub.ID))
					continue
				}
				results = append(results, info)
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func subnetInfo(vnet *armnetwork.VirtualNetwork, sub *armnetwork.Subnet) (SubnetInfo, bool) {
	if sub == nil || sub.ID == nil || sub.Properties == nil {
		return SubnetInfo{}, false
	}
	cidr := ipv4Prefix(sub.Properties)
	if cidr == "" {
		return SubnetInfo{}, false
	}
	info := SubnetInfo{
		ID:             toValue(sub.ID),
		Name:           toValue(sub.Name),
		VirtualNetwork: toValue(vnet.Name),
		Location:       toValue(vnet.Location),
		CIDR:           cidr,
	}
	if rid, err := arm.ParseResourceID(info.ID); err == nil {
		info.ResourceGroup = rid.ResourceGroupName
	}
	return info, true
}

// ipv4Prefix returns the IPv4 address prefix of the subnet. Subnets
// with several prefixes carry them in AddressPrefixes instead of
// AddressPrefix.
func ipv4Prefix(props *armnetwork.SubnetPropertiesFormat) string {
	if prefix := toValue(props.AddressPrefix); prefix != "" {
		return prefix
	}
	for _, prefix := range props.AddressPrefixes {
		if prefix == nil {
			continue
		}
		parsed, err := netip.ParsePrefix(*prefix)
		// We only care about IPv4 addresses.
		if err == nil && parsed.Addr().Is4() {
			return *prefix
		}
	}
	return ""
}

// SubnetByName returns the subnet with the given name. A name of the
// form "vnet/subnet" also matches the virtual network.
func SubnetByName(subnets []SubnetInfo, name string) (SubnetInfo, error) {
	var found []SubnetInfo
	for _, sub := range subnets {
		if sub.Name == name || sub.VirtualNetwork+"/"+sub.Name == name {
			found = append(found, sub)
		}
	}
	switch len(found) {
	case 0:
		return SubnetInfo{}, errors.NotFoundf("subnet %q", name)
	case 1:
		return found[0], nil
	}
	return SubnetInfo{}, errors.Errorf("subnet name %q is ambiguous, use virtual-network/subnet", name)
}

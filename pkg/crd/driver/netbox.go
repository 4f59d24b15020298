package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	runtimeclient "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"github.com/netbox-community/go-netbox/netbox"
	"github.com/netbox-community/go-netbox/netbox/client"
	"github.com/netbox-community/go-netbox/netbox/client/ipam"
	"github.com/netbox-community/go-netbox/netbox/models"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// NetboxDriver impl the Driver interface with netbox support
type NetboxDriver struct {
	Config NetboxDriverConfig
	Client *client.NetBox
	logger logr.Logger
}

// NetboxDriverConfig contains the connection info to a netbox service
type NetboxDriverConfig struct {
	Host   string   `json:"host"`
	APIKey string   `json:"apiKey"`
	Debug  bool     `json:"debug"`
	Tags   []string `json:"tags"`
}

// NewNetboxDriver construct a NetboxDriver instance with config
func NewNetboxDriver(rawConfig string, logger logr.Logger) (*NetboxDriver, error) {
	ret := &NetboxDriver{logger: logger}
	if err := json.Unmarshal([]byte(rawConfig), &ret.Config); err != nil {
		return nil, fmt.Errorf("netbox config: %w", err)
	}
	if ret.Config.Host == "" {
		return nil, errors.New("netbox config: host is required")
	}
	if ret.Config.Debug {
		logger.Info("handle netbox in debug mode")
		t := runtimeclient.New(ret.Config.Host, client.DefaultBasePath, client.DefaultSchemes)
		t.SetDebug(true)
		t.DefaultAuthentication =
			runtimeclient.APIKeyAuth(
				"Authorization",
				"header",
				fmt.Sprintf("Token %v", ret.Config.APIKey),
			)
		ret.Client = client.New(t, strfmt.Default)
	} else {
		ret.Client = netbox.NewNetboxWithAPIKey(ret.Config.Host, ret.Config.APIKey)
	}
	return ret, nil
}

// NetworkToPoolName convert a pool to driver's pool name
// In Netbox they are the same value. So here just check the pool is a cidr
func (d *NetboxDriver) NetworkToPoolName(network string) (string, error) {
	p, err := ipaddr.ParseCIDR(network)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// listPageSize is the number of prefixes requested per netbox page
const listPageSize = int64(1000)

// ListPrefixes returns the prefixes netbox holds strictly inside the pool,
// following the pagination until the last page
func (d *NetboxDriver) ListPrefixes(ctx context.Context, poolName string) ([]Prefix, error) {
	var ret []Prefix
	limit := listPageSize
	for offset := int64(0); ; {
		page := offset
		response, err := d.Client.Ipam.IpamPrefixesList(
			ipam.NewIpamPrefixesListParams().
				WithContext(ctx).
				WithWithin(&poolName).
				WithLimit(&limit).
				WithOffset(&page), nil)
		if err != nil {
			return nil, err
		}

		results := response.Payload.Results
		for _, p := range results {
			if p.Prefix == nil {
				continue
			}
			ret = append(ret, Prefix{ID: p.ID, CIDR: *p.Prefix, Description: p.Description})
		}
		if response.Payload.Next == nil || len(results) == 0 {
			return ret, nil
		}
		offset += int64(len(results))
	}
}

// CreatePrefix create a prefix object in netbox
func (d *NetboxDriver) CreatePrefix(ctx context.Context, poolName, cidr, description string) error {
	pool, err := ipaddr.ParseCIDR(poolName)
	if err != nil {
		return err
	}
	p, err := ipaddr.ParseCIDR(cidr)
	if err != nil {
		return err
	}
	if !pool.ContainsPrefix(p) {
		return fmt.Errorf("prefix %s is not in pool %s", cidr, poolName)
	}

	data := &models.WritablePrefix{
		Prefix:      &cidr,
		Description: description,
		Tags:        d.Config.Tags,
	}
	_, err = d.Client.Ipam.IpamPrefixesCreate(
		ipam.NewIpamPrefixesCreateParams().WithContext(ctx).WithData(data),
		nil,
	)
	d.logger.V(1).Info("netbox create prefix", "cidr", cidr, "error", err)
	return err
}

// DeletePrefix delete a prefix object in netbox
func (d *NetboxDriver) DeletePrefix(ctx context.Context, _ string, p Prefix) error {
	_, err := d.Client.Ipam.IpamPrefixesDelete(
		ipam.NewIpamPrefixesDeleteParams().WithContext(ctx).WithID(p.ID),
		nil,
	)
	d.logger.V(1).Info("netbox delete prefix", "cidr", p.CIDR, "error", err)
	return err
}

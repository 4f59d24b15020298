package cni

import (
	"encoding/json"
	"fmt"

	"github.com/containernetworking/cni/pkg/types"
)

// IPAMConf extend official's IPAM config
type IPAMConf struct {
	types.IPAM
	KubeConfigPath string `json:"configPath"`
	PlanName       string `json:"planName"`
	// PlanNamespace defaults to the namespace of the kubeconfig's current context
	PlanNamespace string `json:"planNamespace"`
	// RequestName selects the planned subnet addresses are taken from
	RequestName string `json:"requestName"`
	// Gateway defaults to the last usable address of the subnet
	Gateway string   `json:"gateway"`
	Routes  []string `json:"routes"`
	LogFile string   `json:"logFile"`
	// Allocator is "basic" (the default) or "round-robin"
	Allocator string `json:"allocator"`
}

// PluginConf extend official's cni conf, but use custom ipamconf
type PluginConf struct {
	types.NetConf
	IPAM IPAMConf `json:"ipam"`
}

// LoadNetConf parses and checks the plugin configuration read from stdin
func LoadNetConf(bytes []byte) (*PluginConf, error) {
	conf := &PluginConf{}
	if err := json.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("failed to load netconf: %w", err)
	}

	if conf.IPAM.KubeConfigPath == "" ||
		conf.IPAM.PlanName == "" ||
		conf.IPAM.RequestName == "" {
		return nil, fmt.Errorf("configPath, planName and requestName are required in the cni ipam config")
	}
	return conf, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/containernetworking/cni/pkg/skel"
	"github.com/containernetworking/cni/pkg/types"
	types100 "github.com/containernetworking/cni/pkg/types/100"
	"github.com/containernetworking/cni/pkg/version"
	bv "github.com/containernetworking/plugins/pkg/utils/buildversion"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/jbliao/kubesubnet/pkg/cni"
	"github.com/jbliao/kubesubnet/pkg/cni/allocator"
	"github.com/jbliao/kubesubnet/pkg/cni/pool"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			log.Fatalln("Panic Occured: ", err)
		}
	}()
	skel.PluginMain(cmdAdd, cmdCheck, cmdDel, version.All, bv.BuildString("cccni"))
}

func setupLog(logFile string) logr.Logger {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0664)
		if err == nil {
			log.SetOutput(f)
		} else {
			log.Printf("Cannot open file \"%s\" to log, fallback to default", logFile)
		}
	}
	std := log.New(log.Writer(), "", log.Flags()|log.Lshortfile)
	return funcr.New(func(prefix, args string) {
		std.Println(prefix, args)
	}, funcr.Options{})
}

// setup loads the config and builds the plan backed pool and allocator
func setup(args *skel.CmdArgs) (*cni.PluginConf, logr.Logger, cni.Pool, cni.Allocator, error) {
	conf, err := cni.LoadNetConf(args.StdinData)
	if err != nil {
		return nil, logr.Discard(), nil, nil, err
	}
	logger := setupLog(conf.IPAM.LogFile).WithValues("containerID", args.ContainerID,
		"plan", conf.IPAM.PlanName, "request", conf.IPAM.RequestName)

	p, err := pool.NewKubePool(context.Background(), &conf.IPAM, logger)
	if err != nil {
		logger.Error(err, "cannot reach the subnet plan")
		return nil, logger, nil, nil, err
	}
	alctr, err := allocator.New(conf.IPAM.Allocator, logger)
	if err != nil {
		return nil, logger, nil, nil, err
	}
	return conf, logger, p, alctr, nil
}

func cmdAdd(args *skel.CmdArgs) error {
	conf, logger, p, alctr, err := setup(args)
	if err != nil {
		return err
	}
	logger.Info("cmdAdd begin")

	lease, err := alctr.Allocate(p, conf.IPAM.RequestName, args.ContainerID, conf.IPAM.Gateway)
	if err != nil {
		logger.Error(err, "allocate")
		return err
	}

	routes, err := cni.Routes(lease.Gateway, conf.IPAM.Routes)
	if err != nil {
		logger.Error(err, "routes")
		return err
	}

	result := &types100.Result{
		CNIVersion: types100.ImplementedSpecVersion,
		IPs: []*types100.IPConfig{{
			Address: lease.Address,
			Gateway: lease.Gateway,
		}},
		Routes: routes,
	}

	logger.Info("cmdAdd end", "address", lease.Address.String())
	return types.PrintResult(result, conf.CNIVersion)
}

func cmdCheck(args *skel.CmdArgs) error {
	conf, logger, p, alctr, err := setup(args)
	if err != nil {
		return err
	}
	logger.Info("cmdCheck begin")

	if conf.RawPrevResult == nil {
		return fmt.Errorf("check requires a previous result")
	}
	if err := version.ParsePrevResult(&conf.NetConf); err != nil {
		return err
	}
	prev, err := types100.GetResult(conf.PrevResult)
	if err != nil {
		return err
	}

	for _, ip := range prev.IPs {
		if err := alctr.Check(p, conf.IPAM.RequestName, args.ContainerID, ip.Address.IP); err != nil {
			logger.Error(err, "check")
			return err
		}
	}
	return nil
}

func cmdDel(args *skel.CmdArgs) error {
	_, logger, p, alctr, err := setup(args)
	if err != nil {
		return err
	}
	logger.Info("cmdDel begin")

	if err := alctr.Release(p, args.ContainerID); err != nil {
		logger.Error(err, "release")
		return err
	}
	logger.Info("cmdDel end")
	return nil
}

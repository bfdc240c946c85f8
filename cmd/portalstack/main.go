// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// portalstack compiles a declarative catalog-portal deployment config
// into an AWS resource graph and submits it. It performs exactly one
// provisioning pass; convergence and lifecycle belong to the cloud
// control plane and the surrounding deployment tooling.
package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	awsprovider "github.com/juju/portalstack/internal/provider/aws"
)

func main() {
	os.Exit(Main(os.Args[1:]))
}

// Main runs the command and returns the process exit code.
func Main(args []string) int {
	flags := gnuflag.NewFlagSet("portalstack", gnuflag.ContinueOnError)
	configPath := flags.String("config", "portalstack.yaml", "deployment configuration file")
	logLevel := flags.String("log-level", "INFO", "log level for the root logger")
	showGraph := flags.Bool("show-graph", false, "print the compiled resource graph on success")
	if err := flags.Parse(true, args); err != nil {
		if err == gnuflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := loggo.ConfigureLoggers("<root>=" + *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	req, err := readConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portalstack: %v\n", err)
		return 1
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portalstack: loading AWS configuration: %v\n", err)
		return 1
	}

	provisioner := awsprovider.NewProvisioner(awsprovider.NewClients(cfg))
	result, err := provisioner.Provision(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portalstack: provisioning failed: %v\n", err)
		return 1
	}

	fmt.Printf("cluster: %s\n", result.ClusterARN)
	fmt.Printf("load balancer: %s\n", result.LoadBalancerARN)
	if *showGraph {
		for _, r := range result.Graph.Resources() {
			fmt.Printf("resource %s %q\n", r.Kind, r.Name)
		}
		for _, e := range result.Graph.Edges() {
			if e.Reason != "" {
				fmt.Printf("edge %s %s -> %s (%s)\n", e.Kind, e.From, e.To, e.Reason)
				continue
			}
			fmt.Printf("edge %s %s -> %s\n", e.Kind, e.From, e.To)
		}
	}
	return 0
}

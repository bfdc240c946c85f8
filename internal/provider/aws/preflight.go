// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/juju/errors"
)

// preflight resolves the externally owned handles the run depends on.
// These are reads, not mutations: a handle that cannot be resolved is a
// misconfiguration and must surface before anything is created.
func (p *Provisioner) preflight(ctx context.Context, req Request) error {
	if _, err := p.clients.Identity.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(req.ExecutionRole.Name),
	}); err != nil {
		return errors.Annotatef(err, "task execution role %q", req.ExecutionRole.Name)
	}
	// The access-log target must be reachable up front; a run that only
	// discovers a missing bucket after the service exists has already
	// created half a topology.
	if _, err := p.clients.LogStore.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(req.LogBucket.Name),
	}); err != nil {
		return errors.Annotatef(err, "access log bucket %q not reachable", req.LogBucket.Name)
	}
	return nil
}

// resolveImage returns the container image reference for the run. A
// spec image is used as given; otherwise the registry repository handle
// is resolved to its image URI.
func (p *Provisioner) resolveImage(ctx context.Context, req Request) (string, error) {
	if req.Spec.Image != "" {
		return req.Spec.Image, nil
	}
	out, err := p.clients.Registry.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{req.Registry.Repository},
	})
	if err != nil {
		return "", errors.Annotatef(err, "resolving repository %q", req.Registry.Repository)
	}
	if len(out.Repositories) == 0 {
		return "", errors.NotFoundf("repository %q", req.Registry.Repository)
	}
	return aws.ToString(out.Repositories[0].RepositoryUri) + ":latest", nil
}

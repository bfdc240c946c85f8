// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ClusterClient is the subset of the ECS API used by the provisioner.
type ClusterClient interface {
	CreateCluster(context.Context, *ecs.CreateClusterInput, ...func(*ecs.Options)) (*ecs.CreateClusterOutput, error)
	RegisterTaskDefinition(context.Context, *ecs.RegisterTaskDefinitionInput, ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error)
	CreateService(context.Context, *ecs.CreateServiceInput, ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error)
}

// LoadBalancerClient is the subset of the ELBv2 API used by the
// provisioner.
type LoadBalancerClient interface {
	CreateLoadBalancer(context.Context, *elbv2.CreateLoadBalancerInput, ...func(*elbv2.Options)) (*elbv2.CreateLoadBalancerOutput, error)
	CreateTargetGroup(context.Context, *elbv2.CreateTargetGroupInput, ...func(*elbv2.Options)) (*elbv2.CreateTargetGroupOutput, error)
	CreateListener(context.Context, *elbv2.CreateListenerInput, ...func(*elbv2.Options)) (*elbv2.CreateListenerOutput, error)
	ModifyLoadBalancerAttributes(context.Context, *elbv2.ModifyLoadBalancerAttributesInput, ...func(*elbv2.Options)) (*elbv2.ModifyLoadBalancerAttributesOutput, error)
	SetSecurityGroups(context.Context, *elbv2.SetSecurityGroupsInput, ...func(*elbv2.Options)) (*elbv2.SetSecurityGroupsOutput, error)
}

// NetworkClient is the subset of the EC2 API used by the provisioner.
type NetworkClient interface {
	CreateSecurityGroup(context.Context, *ec2.CreateSecurityGroupInput, ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(context.Context, *ec2.AuthorizeSecurityGroupIngressInput, ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
}

// DNSClient is the subset of the Route 53 API used by the provisioner.
type DNSClient interface {
	ChangeResourceRecordSets(context.Context, *route53.ChangeResourceRecordSetsInput, ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// CertificateClient is the subset of the ACM API used by the
// provisioner.
type CertificateClient interface {
	RequestCertificate(context.Context, *acm.RequestCertificateInput, ...func(*acm.Options)) (*acm.RequestCertificateOutput, error)
}

// SecretsClient is the subset of the Secrets Manager API used by the
// provisioner.
type SecretsClient interface {
	GetRandomPassword(context.Context, *secretsmanager.GetRandomPasswordInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetRandomPasswordOutput, error)
	CreateSecret(context.Context, *secretsmanager.CreateSecretInput, ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// KeyClient is the subset of the KMS API used by the provisioner.
type KeyClient interface {
	CreateGrant(context.Context, *kms.CreateGrantInput, ...func(*kms.Options)) (*kms.CreateGrantOutput, error)
}

// IdentityClient is the subset of the IAM API used by the provisioner.
type IdentityClient interface {
	GetRole(context.Context, *iam.GetRoleInput, ...func(*iam.Options)) (*iam.GetRoleOutput, error)
}

// LogStoreClient is the subset of the S3 API used by the provisioner.
type LogStoreClient interface {
	HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// RegistryClient is the subset of the ECR API used by the provisioner.
type RegistryClient interface {
	DescribeRepositories(context.Context, *ecr.DescribeRepositoriesInput, ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
}

// Clients bundles the narrow service clients the provisioner calls.
// Tests substitute recording fakes; production code binds the real SDK
// clients with NewClients.
type Clients struct {
	Cluster      ClusterClient
	LoadBalancer LoadBalancerClient
	Network      NetworkClient
	DNS          DNSClient
	Certificates CertificateClient
	Secrets      SecretsClient
	Keys         KeyClient
	Identity     IdentityClient
	LogStore     LogStoreClient
	Registry     RegistryClient
}

// NewClients binds the real AWS service clients from the supplied
// ambient configuration.
func NewClients(cfg aws.Config) Clients {
	return Clients{
		Cluster:      ecs.NewFromConfig(cfg),
		LoadBalancer: elbv2.NewFromConfig(cfg),
		Network:      ec2.NewFromConfig(cfg),
		DNS:          route53.NewFromConfig(cfg),
		Certificates: acm.NewFromConfig(cfg),
		Secrets:      secretsmanager.NewFromConfig(cfg),
		Keys:         kms.NewFromConfig(cfg),
		Identity:     iam.NewFromConfig(cfg),
		LogStore:     s3.NewFromConfig(cfg),
		Registry:     ecr.NewFromConfig(cfg),
	}
}

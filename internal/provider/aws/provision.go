// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package aws compiles a declarative portal service spec into the AWS
// resource graph that runs it: an ECS cluster, a load-balanced Fargate
// service behind an HTTPS application load balancer, an apex DNS alias,
// and the permission and network edges wiring the service to its
// database, secrets and image registry.
//
// The provisioner submits the graph and returns; convergence (task
// placement, health checks, certificate validation, DNS propagation) is
// the control plane's business. There is no retry and no rollback here:
// the first failing step is propagated and recovery is "fix the
// configuration and resubmit the whole declaration".
package aws

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	acmtypes "github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	route53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/portalstack/core/spec"
	"github.com/juju/portalstack/core/topology"
)

var logger = loggo.GetLogger("portalstack.provider.aws")

// Request carries the full declarative input for one provisioning run.
// The ambient deployment context is threaded through this object rather
// than read from globals, so the provisioner can be constructed against
// recording fakes.
type Request struct {
	Spec          spec.ServiceSpec
	Network       spec.NetworkContext
	Registry      spec.RegistryContext
	Database      spec.DatabaseContext
	Secrets       spec.SecretRefs
	ExecutionRole spec.RoleHandle
	HostedZone    spec.ZoneHandle
	LogBucket     spec.BucketHandle
	Branding      spec.Branding
}

// Validate checks every required handle before any resource creation is
// attempted. Partial creation leaves orphaned billable resources, so
// misconfiguration must surface here, not downstream.
func (r Request) Validate() error {
	if err := r.Spec.Validate(); err != nil {
		return errors.Annotate(err, "service spec")
	}
	if err := r.Network.Validate(); err != nil {
		return errors.Annotate(err, "network context")
	}
	if err := r.Registry.Validate(); err != nil {
		return errors.Annotate(err, "registry context")
	}
	if err := r.Database.Validate(); err != nil {
		return errors.Annotate(err, "database context")
	}
	if err := r.Secrets.Validate(); err != nil {
		return errors.Annotate(err, "secret references")
	}
	if err := r.ExecutionRole.Validate(); err != nil {
		return errors.Annotate(err, "task execution role")
	}
	if err := r.HostedZone.Validate(); err != nil {
		return errors.Annotate(err, "hosted zone")
	}
	if err := r.LogBucket.Validate(); err != nil {
		return errors.Annotate(err, "access log bucket")
	}
	return nil
}

// Provisioner compiles and submits portal topologies through a bundle
// of narrow service clients.
type Provisioner struct {
	clients Clients
}

// NewProvisioner returns a provisioner calling through the supplied
// clients.
func NewProvisioner(clients Clients) *Provisioner {
	return &Provisioner{clients: clients}
}

// Provision expands the request into the portal resource graph and
// submits it. Exactly one cluster and one load-balanced service are
// created per call. The first failing step aborts the run with its
// identity annotated on the error; nothing already created is undone.
func (p *Provisioner) Provision(ctx context.Context, req Request) (spec.ProvisionedTopology, error) {
	fail := func(err error) (spec.ProvisionedTopology, error) {
		return spec.ProvisionedTopology{}, err
	}

	req.Spec = spec.MergeDefaults(req.Spec)
	if err := req.Validate(); err != nil {
		return fail(errors.Trace(err))
	}
	if err := p.preflight(ctx, req); err != nil {
		return fail(errors.Trace(err))
	}
	image, err := p.resolveImage(ctx, req)
	if err != nil {
		return fail(errors.Trace(err))
	}

	sp := req.Spec
	var graph topology.Graph

	// Service-to-service authentication secret. The value is generated
	// by the secret store; no caller ever supplies or sees it.
	serviceSecret, graph, err := p.createServiceAuthSecret(ctx, sp, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	clusterARN, graph, err := p.createCluster(ctx, sp, req.Network, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	svc, graph, err := p.createLoadBalancedService(ctx, sp, req, image, clusterARN, serviceSecret, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	// Access logging is a correctness requirement. An unreachable log
	// store fails the run; there is no best-effort path.
	graph, err = p.enableAccessLogging(ctx, svc.loadBalancerARN, req.LogBucket, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	// The decrypt grant is issued if and only if the registry carries an
	// encryption key. The absent case is a structural skip, not a
	// runtime nil check.
	if keyARN, ok := req.Registry.Key.ARN(); ok {
		graph, err = p.grantImageDecrypt(ctx, sp, keyARN, req.ExecutionRole, graph)
		if err != nil {
			return fail(errors.Trace(err))
		}
	}

	graph, err = p.openDatabasePerimeter(ctx, sp, req.Database, svc.securityGroup, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	graph, err = p.attachIngressBoundary(ctx, svc.loadBalancerARN, req.Network.AllowedIngress, graph)
	if err != nil {
		return fail(errors.Trace(err))
	}

	logger.Infof("provisioned portal %q: cluster %q, load balancer %q",
		sp.NamePrefix, clusterARN, svc.loadBalancerARN)
	return spec.ProvisionedTopology{
		ClusterARN:      clusterARN,
		LoadBalancerARN: svc.loadBalancerARN,
		Graph:           graph,
	}, nil
}

func (p *Provisioner) createServiceAuthSecret(
	ctx context.Context, sp spec.ServiceSpec, graph topology.Graph,
) (spec.SecretHandle, topology.Graph, error) {
	name := sp.NamePrefix + "-service-auth"
	logger.Debugf("creating service auth secret %q", name)
	password, err := p.clients.Secrets.GetRandomPassword(ctx, &secretsmanager.GetRandomPasswordInput{
		PasswordLength:     aws.Int64(32),
		ExcludePunctuation: aws.Bool(true),
	})
	if err != nil {
		return spec.SecretHandle{}, graph, errors.Annotate(err, "generating service auth secret value")
	}
	created, err := p.clients.Secrets.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		Description:  aws.String("service-to-service authentication for " + sp.NamePrefix),
		SecretString: password.RandomPassword,
	})
	if err != nil {
		return spec.SecretHandle{}, graph, errors.Annotatef(err, "creating secret %q", name)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindSecret,
		Name: name,
	})
	return spec.SecretHandle{ARN: aws.ToString(created.ARN)}, graph, nil
}

func (p *Provisioner) createCluster(
	ctx context.Context, sp spec.ServiceSpec, network spec.NetworkContext, graph topology.Graph,
) (string, topology.Graph, error) {
	name := sp.NamePrefix + "-cluster"
	logger.Debugf("creating cluster %q in %s", name, network.VPCID)
	// Container insights is non-optional; without it the deployment is
	// unobservable.
	out, err := p.clients.Cluster.CreateCluster(ctx, &ecs.CreateClusterInput{
		ClusterName: aws.String(name),
		Settings: []ecstypes.ClusterSetting{{
			Name:  ecstypes.ClusterSettingNameContainerInsights,
			Value: aws.String("enabled"),
		}},
		Tags: []ecstypes.Tag{{
			Key:   aws.String("portalstack-vpc"),
			Value: aws.String(network.VPCID),
		}},
	})
	if err != nil {
		return "", graph, errors.Annotatef(err, "creating cluster %q", name)
	}
	if out.Cluster == nil {
		return "", graph, errors.Errorf("cluster %q not returned by control plane", name)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind:  topology.KindCluster,
		Name:  name,
		Attrs: map[string]string{"vpc": network.VPCID},
	})
	return aws.ToString(out.Cluster.ClusterArn), graph, nil
}

// provisionedService carries the intermediate handles later steps wire
// against. Only the load balancer ARN survives into the result.
type provisionedService struct {
	loadBalancerARN string
	securityGroup   string
}

func (p *Provisioner) createLoadBalancedService(
	ctx context.Context,
	sp spec.ServiceSpec,
	req Request,
	image, clusterARN string,
	serviceSecret spec.SecretHandle,
	graph topology.Graph,
) (provisionedService, topology.Graph, error) {
	none := provisionedService{}

	// The tasks get their own security group; it is the service's
	// network identity when the database perimeter is opened later.
	sgName := sp.NamePrefix + "-svc"
	sgOut, err := p.clients.Network.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(sgName),
		Description: aws.String("portal service tasks"),
		VpcId:       aws.String(req.Network.VPCID),
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating service security group %q", sgName)
	}
	serviceSG := aws.ToString(sgOut.GroupId)
	_, err = p.clients.Network.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(serviceSG),
		IpPermissions: []ec2types.IpPermission{ipPermission(sp.Port, req.Network.AllowedIngress, "load balancer to portal containers")},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "opening service group %q to load balancer traffic", serviceSG)
	}

	// Certificate for the zone apex; validation is DNS-based and
	// converges in the control plane.
	certOut, err := p.clients.Certificates.RequestCertificate(ctx, &acm.RequestCertificateInput{
		DomainName:       aws.String(req.HostedZone.Name),
		ValidationMethod: acmtypes.ValidationMethodDns,
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "requesting certificate for %q", req.HostedZone.Name)
	}

	lbName := sp.NamePrefix + "-lb"
	lbOut, err := p.clients.LoadBalancer.CreateLoadBalancer(ctx, &elbv2.CreateLoadBalancerInput{
		Name:    aws.String(lbName),
		Subnets: req.Network.SubnetIDs,
		Scheme:  elbtypes.LoadBalancerSchemeEnumInternetFacing,
		Type:    elbtypes.LoadBalancerTypeEnumApplication,
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating load balancer %q", lbName)
	}
	if len(lbOut.LoadBalancers) == 0 {
		return none, graph, errors.Errorf("load balancer %q not returned by control plane", lbName)
	}
	lb := lbOut.LoadBalancers[0]
	lbARN := aws.ToString(lb.LoadBalancerArn)

	tgName := sp.NamePrefix + "-tg"
	tgOut, err := p.clients.LoadBalancer.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:            aws.String(tgName),
		Port:            aws.Int32(int32(sp.Port)),
		Protocol:        elbtypes.ProtocolEnumHttp,
		VpcId:           aws.String(req.Network.VPCID),
		TargetType:      elbtypes.TargetTypeEnumIp,
		HealthCheckPath: aws.String("/"),
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating target group %q", tgName)
	}
	if len(tgOut.TargetGroups) == 0 {
		return none, graph, errors.Errorf("target group %q not returned by control plane", tgName)
	}
	tgARN := aws.ToString(tgOut.TargetGroups[0].TargetGroupArn)

	// HTTPS is the only acceptance path; the HTTP listener exists solely
	// to redirect.
	_, err = p.clients.LoadBalancer.CreateListener(ctx, &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(lbARN),
		Port:            aws.Int32(443),
		Protocol:        elbtypes.ProtocolEnumHttps,
		Certificates:    []elbtypes.Certificate{{CertificateArn: certOut.CertificateArn}},
		DefaultActions: []elbtypes.Action{{
			Type:           elbtypes.ActionTypeEnumForward,
			TargetGroupArn: aws.String(tgARN),
		}},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating HTTPS listener on %q", lbName)
	}
	_, err = p.clients.LoadBalancer.CreateListener(ctx, &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(lbARN),
		Port:            aws.Int32(80),
		Protocol:        elbtypes.ProtocolEnumHttp,
		DefaultActions: []elbtypes.Action{{
			Type: elbtypes.ActionTypeEnumRedirect,
			RedirectConfig: &elbtypes.RedirectActionConfig{
				Protocol:   aws.String("HTTPS"),
				Port:       aws.String("443"),
				StatusCode: elbtypes.RedirectActionStatusCodeEnumHttp301,
			},
		}},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating HTTP redirect listener on %q", lbName)
	}

	// Exactly one container per task; sidecar composition is not
	// supported.
	containerName := sp.NamePrefix
	taskOut, err := p.clients.Cluster.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(sp.NamePrefix),
		Cpu:                     aws.String(strconv.Itoa(sp.CPUUnits)),
		Memory:                  aws.String(strconv.Itoa(sp.MemoryMiB)),
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		ExecutionRoleArn:        aws.String(req.ExecutionRole.ARN),
		ContainerDefinitions: []ecstypes.ContainerDefinition{{
			Name:      aws.String(containerName),
			Image:     aws.String(image),
			Essential: aws.Bool(true),
			PortMappings: []ecstypes.PortMapping{{
				ContainerPort: aws.Int32(int32(sp.Port)),
				Protocol:      ecstypes.TransportProtocolTcp,
			}},
			Environment: containerEnvironment(sp, req.Database, req.Branding),
			Secrets:     containerSecrets(sp, req.Database, req.Secrets, serviceSecret),
		}},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "registering task definition %q", sp.NamePrefix)
	}
	if taskOut.TaskDefinition == nil {
		return none, graph, errors.Errorf("task definition %q not returned by control plane", sp.NamePrefix)
	}

	serviceName := sp.NamePrefix + "-service"
	_, err = p.clients.Cluster.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(clusterARN),
		ServiceName:    aws.String(serviceName),
		TaskDefinition: taskOut.TaskDefinition.TaskDefinitionArn,
		DesiredCount:   aws.Int32(int32(sp.Replicas)),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        req.Network.SubnetIDs,
				SecurityGroups: []string{serviceSG},
				AssignPublicIp: ecstypes.AssignPublicIpDisabled,
			},
		},
		LoadBalancers: []ecstypes.LoadBalancer{{
			TargetGroupArn: aws.String(tgARN),
			ContainerName:  aws.String(containerName),
			ContainerPort:  aws.Int32(int32(sp.Port)),
		}},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating service %q", serviceName)
	}

	// Publish at the zone apex; the zone's own domain name is the
	// service's public name.
	_, err = p.clients.DNS.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(req.HostedZone.ID),
		ChangeBatch: &route53types.ChangeBatch{
			Comment: aws.String("portalstack alias for " + serviceName),
			Changes: []route53types.Change{{
				Action: route53types.ChangeActionUpsert,
				ResourceRecordSet: &route53types.ResourceRecordSet{
					Name: aws.String(req.HostedZone.Name),
					Type: route53types.RRTypeA,
					AliasTarget: &route53types.AliasTarget{
						DNSName:              lb.DNSName,
						HostedZoneId:         lb.CanonicalHostedZoneId,
						EvaluateTargetHealth: false,
					},
				},
			}},
		},
	})
	if err != nil {
		return none, graph, errors.Annotatef(err, "creating alias record %q", req.HostedZone.Name)
	}

	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindService,
		Name: serviceName,
		Attrs: map[string]string{
			"image":    image,
			"port":     strconv.Itoa(sp.Port),
			"memory":   strconv.Itoa(sp.MemoryMiB),
			"cpu":      strconv.Itoa(sp.CPUUnits),
			"replicas": strconv.Itoa(sp.Replicas),
		},
	})
	graph = topology.WithResource(graph, topology.Resource{
		Kind:  topology.KindListener,
		Name:  lbName + ":443",
		Attrs: map[string]string{"protocol": "HTTPS"},
	})
	graph = topology.WithResource(graph, topology.Resource{
		Kind:  topology.KindListener,
		Name:  lbName + ":80",
		Attrs: map[string]string{"protocol": "HTTP", "action": "redirect-to-https"},
	})
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindDNSAlias,
		Name: req.HostedZone.Name,
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind: topology.EdgeServes,
		From: lbName,
		To:   serviceName,
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind: topology.EdgePublishes,
		From: req.HostedZone.Name,
		To:   lbName,
	})
	for _, secret := range containerSecrets(sp, req.Database, req.Secrets, serviceSecret) {
		graph = topology.WithEdge(graph, topology.Edge{
			Kind: topology.EdgeInjects,
			From: aws.ToString(secret.ValueFrom),
			To:   serviceName,
		})
	}
	return provisionedService{
		loadBalancerARN: lbARN,
		securityGroup:   serviceSG,
	}, graph, nil
}

func (p *Provisioner) enableAccessLogging(
	ctx context.Context, lbARN string, bucket spec.BucketHandle, graph topology.Graph,
) (topology.Graph, error) {
	logger.Debugf("enabling access logs to %q", bucket.Name)
	_, err := p.clients.LoadBalancer.ModifyLoadBalancerAttributes(ctx, &elbv2.ModifyLoadBalancerAttributesInput{
		LoadBalancerArn: aws.String(lbARN),
		Attributes: []elbtypes.LoadBalancerAttribute{
			{Key: aws.String("access_logs.s3.enabled"), Value: aws.String("true")},
			{Key: aws.String("access_logs.s3.bucket"), Value: aws.String(bucket.Name)},
		},
	})
	if err != nil {
		return graph, errors.Annotatef(err, "enabling access logs to bucket %q", bucket.Name)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindAccessLog,
		Name: bucket.Name,
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind: topology.EdgeLogsTo,
		From: lbARN,
		To:   bucket.Name,
	})
	return graph, nil
}

func (p *Provisioner) grantImageDecrypt(
	ctx context.Context, sp spec.ServiceSpec, keyARN string, role spec.RoleHandle, graph topology.Graph,
) (topology.Graph, error) {
	logger.Debugf("granting %q decrypt on %q", role.Name, keyARN)
	_, err := p.clients.Keys.CreateGrant(ctx, &kms.CreateGrantInput{
		KeyId:            aws.String(keyARN),
		GranteePrincipal: aws.String(role.ARN),
		Name:             aws.String(sp.NamePrefix + "-image-decrypt"),
		Operations:       []kmstypes.GrantOperation{kmstypes.GrantOperationDecrypt},
	})
	if err != nil {
		return graph, errors.Annotatef(err, "granting decrypt on registry key to role %q", role.Name)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindDecryptGrant,
		Name: sp.NamePrefix + "-image-decrypt",
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind: topology.EdgeGrantsDecrypt,
		From: role.ARN,
		To:   keyARN,
	})
	return graph, nil
}

func (p *Provisioner) openDatabasePerimeter(
	ctx context.Context, sp spec.ServiceSpec, db spec.DatabaseContext, serviceSG string, graph topology.Graph,
) (topology.Graph, error) {
	rule := topology.PerimeterRule{
		Group:     db.Perimeter,
		FromGroup: serviceSG,
		Port:      db.Endpoint.Port,
		Reason:    fmt.Sprintf("%s portal service access to postgres", sp.NamePrefix),
	}
	if err := rule.Validate(); err != nil {
		return graph, errors.Trace(err)
	}
	logger.Debugf("opening database perimeter: %s", rule)
	// Additive only: one new allow-rule, nothing replaced or removed.
	_, err := p.clients.Network.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(rule.Group),
		IpPermissions: []ec2types.IpPermission{ipPermission(rule.Port, rule.FromGroup, rule.Reason)},
	})
	if err != nil {
		return graph, errors.Annotatef(err, "opening database perimeter to %q", serviceSG)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindIngressRule,
		Name: rule.String(),
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind:   topology.EdgeAllowsIngress,
		From:   rule.FromGroup,
		To:     rule.Group,
		Reason: rule.Reason,
	})
	return graph, nil
}

func (p *Provisioner) attachIngressBoundary(
	ctx context.Context, lbARN, allowedIngress string, graph topology.Graph,
) (topology.Graph, error) {
	logger.Debugf("gating %q behind %q", lbARN, allowedIngress)
	_, err := p.clients.LoadBalancer.SetSecurityGroups(ctx, &elbv2.SetSecurityGroupsInput{
		LoadBalancerArn: aws.String(lbARN),
		SecurityGroups:  []string{allowedIngress},
	})
	if err != nil {
		return graph, errors.Annotatef(err, "attaching ingress boundary %q", allowedIngress)
	}
	graph = topology.WithResource(graph, topology.Resource{
		Kind: topology.KindAttachment,
		Name: allowedIngress,
	})
	graph = topology.WithEdge(graph, topology.Edge{
		Kind: topology.EdgeGatedBy,
		From: lbARN,
		To:   allowedIngress,
	})
	return graph, nil
}

func ipPermission(port int, fromGroup, reason string) ec2types.IpPermission {
	return ec2types.IpPermission{
		IpProtocol: aws.String("tcp"),
		FromPort:   aws.Int32(int32(port)),
		ToPort:     aws.Int32(int32(port)),
		UserIdGroupPairs: []ec2types.UserIdGroupPair{{
			GroupId:     aws.String(fromGroup),
			Description: aws.String(reason),
		}},
	}
}

// containerEnvironment merges caller plaintext env, branding env and the
// fixed database endpoint entries. Fixed keys win over caller entries.
func containerEnvironment(sp spec.ServiceSpec, db spec.DatabaseContext, branding spec.Branding) []ecstypes.KeyValuePair {
	env := make(map[string]string, len(sp.EnvVars)+8)
	for k, v := range sp.EnvVars {
		env[k] = v
	}
	for k, v := range branding.EnvVars() {
		env[k] = v
	}
	env[spec.EnvPostgresHost] = db.Endpoint.Host
	env[spec.EnvPostgresPort] = strconv.Itoa(db.Endpoint.Port)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ecstypes.KeyValuePair, 0, len(keys))
	for _, k := range keys {
		out = append(out, ecstypes.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(env[k]),
		})
	}
	return out
}

// containerSecrets merges caller secret refs with the fixed injected
// set: database credentials, identity-provider credentials, the peer
// admin token and the generated service auth secret. Fixed keys win
// over caller entries.
func containerSecrets(
	sp spec.ServiceSpec, db spec.DatabaseContext, refs spec.SecretRefs, serviceSecret spec.SecretHandle,
) []ecstypes.Secret {
	merged := make(map[string]spec.SecretHandle, len(sp.SecretEnvVars)+8)
	for k, v := range sp.SecretEnvVars {
		merged[k] = v
	}
	idp := refs[spec.RefIdentityProvider]
	merged[spec.EnvPostgresUser] = db.Credentials.WithField("username")
	merged[spec.EnvPostgresPassword] = db.Credentials.WithField("password")
	merged[spec.EnvIdentityAudience] = idp.WithField("audience")
	merged[spec.EnvIdentityClientID] = idp.WithField("clientId")
	merged[spec.EnvIdentityClientSecret] = idp.WithField("clientSecret")
	merged[spec.EnvIdentityAPIToken] = idp.WithField("apiToken")
	merged[spec.EnvServiceAuthSecret] = serviceSecret
	merged[spec.EnvPeerAdminToken] = refs[spec.RefPeerAdmin]

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ecstypes.Secret, 0, len(keys))
	for _, k := range keys {
		out = append(out, ecstypes.Secret{
			Name:      aws.String(k),
			ValueFrom: aws.String(secretValueFrom(merged[k])),
		})
	}
	return out
}

// secretValueFrom renders a secret handle as the runtime injection
// reference, narrowing to a JSON field when one is set.
func secretValueFrom(h spec.SecretHandle) string {
	if h.Field == "" {
		return h.ARN
	}
	return h.ARN + ":" + h.Field + "::"
}

// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package spec holds the declarative description of a catalog-portal
// deployment: the service to run, the external resources it is wired to,
// and the handles the orchestrator consumes but never owns.
package spec

import (
	"github.com/juju/errors"

	"github.com/juju/portalstack/core/topology"
)

// Fixed container contract. The deployed portal container always listens
// on ContainerPort and runs with the sizing below. These are deliberately
// not caller-configurable; see the package documentation for the
// limitation this implies.
const (
	ContainerPort = 8080
	MemoryMiB     = 2048
	CPUUnits      = 512
	Replicas      = 2
)

// Names of the environment variables every deployed portal container
// receives, regardless of caller-supplied environment. Caller-supplied
// entries never replace these keys.
const (
	EnvPostgresHost         = "POSTGRES_HOST"
	EnvPostgresPort         = "POSTGRES_PORT"
	EnvPostgresUser         = "POSTGRES_USER"
	EnvPostgresPassword     = "POSTGRES_PASSWORD"
	EnvIdentityAudience     = "IDP_AUDIENCE"
	EnvIdentityClientID     = "IDP_CLIENT_ID"
	EnvIdentityClientSecret = "IDP_CLIENT_SECRET"
	EnvIdentityAPIToken     = "IDP_API_TOKEN"
	EnvServiceAuthSecret    = "SERVICE_AUTH_SECRET"
	EnvPeerAdminToken       = "PEER_ADMIN_TOKEN"
)

// Environment variable names derived from the deployment branding.
// Only set when the corresponding branding field is non-empty.
const (
	EnvPortalTitle     = "PORTAL_TITLE"
	EnvPortalOrgName   = "PORTAL_ORG_NAME"
	EnvPortalHostname  = "PORTAL_HOSTNAME"
	EnvCustomerName    = "CUSTOMER_NAME"
	EnvCustomerLogoURL = "CUSTOMER_LOGO_URL"
)

// Logical secret names the orchestrator requires in SecretRefs.
const (
	RefIdentityProvider = "identity-provider"
	RefPeerAdmin        = "peer-admin"
)

// SecretHandle is an opaque reference to credential material held in a
// managed secret store. Field optionally names a JSON field within the
// secret value; the orchestrator only ever forwards the reference, it
// never resolves it.
type SecretHandle struct {
	ARN   string
	Field string
}

// Validate returns an error if the handle does not reference a secret.
func (h SecretHandle) Validate() error {
	if h.ARN == "" {
		return errors.NotValidf("secret handle without ARN")
	}
	return nil
}

// WithField returns a copy of the handle narrowed to one JSON field of
// the secret value.
func (h SecretHandle) WithField(field string) SecretHandle {
	h.Field = field
	return h
}

// RoleHandle references the permission principal a running task assumes.
type RoleHandle struct {
	ARN  string
	Name string
}

// Validate returns an error if the handle does not reference a role.
func (h RoleHandle) Validate() error {
	if h.ARN == "" || h.Name == "" {
		return errors.NotValidf("role handle without ARN and name")
	}
	return nil
}

// ZoneHandle references a hosted DNS zone. Name is the zone's own domain
// name; the service is published at the zone apex.
type ZoneHandle struct {
	ID   string
	Name string
}

// Validate returns an error if the handle does not reference a zone.
func (h ZoneHandle) Validate() error {
	if h.ID == "" {
		return errors.NotValidf("hosted zone handle without ID")
	}
	if h.Name == "" {
		return errors.NotValidf("hosted zone handle without domain name")
	}
	return nil
}

// BucketHandle references the storage target for load balancer access
// logs.
type BucketHandle struct {
	Name string
}

// Validate returns an error if the handle does not reference a bucket.
func (h BucketHandle) Validate() error {
	if h.Name == "" {
		return errors.NotValidf("log bucket handle without name")
	}
	return nil
}

// KeyOption is an explicit present/absent reference to an encryption key.
// Modelling the absent case structurally keeps "skip the grant" a
// compile-visible branch rather than a nil check that a new call site
// could forget.
type KeyOption struct {
	arn     string
	present bool
}

// WithKey returns a present key option for the given key ARN.
func WithKey(arn string) KeyOption {
	return KeyOption{arn: arn, present: true}
}

// NoKey returns the absent key option.
func NoKey() KeyOption {
	return KeyOption{}
}

// ARN returns the key ARN and whether a key is present.
func (k KeyOption) ARN() (string, bool) {
	return k.arn, k.present
}

// Present reports whether a key is present.
func (k KeyOption) Present() bool {
	return k.present
}

// NetworkContext is the externally provisioned network the deployment
// joins. The orchestrator references it, it never mutates or owns it.
type NetworkContext struct {
	// VPCID is the routable network the cluster and service are placed in.
	VPCID string
	// SubnetIDs are the routable subnets used for load balancer and task
	// placement.
	SubnetIDs []string
	// AllowedIngress is the pre-built security group carrying the external
	// access allow-list. It is the sole network gate for external traffic.
	AllowedIngress string
}

// Validate returns an error if any required network handle is missing.
func (n NetworkContext) Validate() error {
	if n.VPCID == "" {
		return errors.NotValidf("network context without VPC")
	}
	if len(n.SubnetIDs) == 0 {
		return errors.NotValidf("network context without subnets")
	}
	if n.AllowedIngress == "" {
		return errors.NotValidf("network context without allowed-ingress security group")
	}
	return nil
}

// RegistryContext references the container image registry the service
// image is pulled from. Key is present only for encrypted registries.
type RegistryContext struct {
	Repository string
	Key        KeyOption
}

// Validate returns an error if the registry handle is missing.
func (r RegistryContext) Validate() error {
	if r.Repository == "" {
		return errors.NotValidf("registry context without repository")
	}
	return nil
}

// Endpoint is a host/port connection endpoint.
type Endpoint struct {
	Host string
	Port int
}

// DatabaseContext references the externally provisioned relational
// database: its endpoint, its credential secret, and the security group
// acting as its network perimeter.
type DatabaseContext struct {
	Endpoint    Endpoint
	Credentials SecretHandle
	Perimeter   string
}

// Validate returns an error if any required database handle is missing.
func (d DatabaseContext) Validate() error {
	if d.Endpoint.Host == "" || d.Endpoint.Port == 0 {
		return errors.NotValidf("database context without endpoint")
	}
	if err := d.Credentials.Validate(); err != nil {
		return errors.Annotate(err, "database credentials")
	}
	if d.Perimeter == "" {
		return errors.NotValidf("database context without perimeter security group")
	}
	return nil
}

// SecretRefs maps logical secret names to handles. The orchestrator
// requires the identity-provider and peer-admin entries; callers may
// carry additional entries for their own wiring.
type SecretRefs map[string]SecretHandle

// Validate returns an error if a required logical secret is missing or
// malformed.
func (s SecretRefs) Validate() error {
	for _, name := range []string{RefIdentityProvider, RefPeerAdmin} {
		ref, ok := s[name]
		if !ok {
			return errors.NotFoundf("secret reference %q", name)
		}
		if err := ref.Validate(); err != nil {
			return errors.Annotatef(err, "secret reference %q", name)
		}
	}
	return nil
}

// Branding carries the customer-facing strings injected into the portal
// environment. All fields are optional.
type Branding struct {
	Title           string
	OrgName         string
	PublicHostname  string
	CustomerName    string
	CustomerLogoURL string
}

// EnvVars returns the environment entries for the non-empty branding
// fields.
func (b Branding) EnvVars() map[string]string {
	env := make(map[string]string)
	for _, f := range []struct{ key, value string }{
		{EnvPortalTitle, b.Title},
		{EnvPortalOrgName, b.OrgName},
		{EnvPortalHostname, b.PublicHostname},
		{EnvCustomerName, b.CustomerName},
		{EnvCustomerLogoURL, b.CustomerLogoURL},
	} {
		if f.value != "" {
			env[f.key] = f.value
		}
	}
	return env
}

// ServiceSpec is the declarative description of the service to provision.
//
// EnvVars must not carry sensitive material; anything sensitive belongs
// in SecretEnvVars so it reaches the container by reference only. This
// is a caller contract, not mechanically enforced.
type ServiceSpec struct {
	// NamePrefix is prepended to every resource name the orchestrator
	// creates.
	NamePrefix string
	// Image is the container image reference. When empty the image is
	// resolved from the registry context.
	Image string
	// Port, MemoryMiB, CPUUnits and Replicas default to the fixed
	// container contract when zero.
	Port      int
	MemoryMiB int
	CPUUnits  int
	Replicas  int
	// Domain is the public domain the service is known by. Informational;
	// the published DNS name is always the hosted zone apex.
	Domain string
	// EnvVars are plaintext environment entries, passed as literals.
	EnvVars map[string]string
	// SecretEnvVars are secret-reference environment entries, resolved by
	// the runtime, never by the orchestrator.
	SecretEnvVars map[string]SecretHandle
}

// MergeDefaults returns a copy of the spec with the fixed container
// contract applied to unset fields and nil maps replaced by empty ones.
// The merge is caller-wins: a field or key the caller supplied is never
// overridden.
func MergeDefaults(s ServiceSpec) ServiceSpec {
	out := s
	if out.Port == 0 {
		out.Port = ContainerPort
	}
	if out.MemoryMiB == 0 {
		out.MemoryMiB = MemoryMiB
	}
	if out.CPUUnits == 0 {
		out.CPUUnits = CPUUnits
	}
	if out.Replicas == 0 {
		out.Replicas = Replicas
	}
	out.EnvVars = make(map[string]string, len(s.EnvVars))
	for k, v := range s.EnvVars {
		out.EnvVars[k] = v
	}
	out.SecretEnvVars = make(map[string]SecretHandle, len(s.SecretEnvVars))
	for k, v := range s.SecretEnvVars {
		out.SecretEnvVars[k] = v
	}
	return out
}

// Validate returns an error if the spec cannot be provisioned.
func (s ServiceSpec) Validate() error {
	if s.NamePrefix == "" {
		return errors.NotValidf("service spec without name prefix")
	}
	for k, ref := range s.SecretEnvVars {
		if err := ref.Validate(); err != nil {
			return errors.Annotatef(err, "secret env %q", k)
		}
	}
	return nil
}

// ProvisionedTopology is what the orchestrator exposes to its caller:
// the cluster and load balancer handles, plus the compiled resource
// graph as an audit artifact. Every other created resource is a graph
// side effect with no further lifecycle managed here.
type ProvisionedTopology struct {
	ClusterARN      string
	LoadBalancerARN string
	Graph           topology.Graph
}

// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package topology models the compiled resource graph: the resources a
// provisioning run declares and the permission/network edges connecting
// them. The graph is a pure value; builders return a new graph and never
// mutate their input, so the ordering and additivity of a run can be
// asserted without a live cloud.
package topology

// Kind identifies the kind of a declared resource.
type Kind string

const (
	KindCluster      Kind = "cluster"
	KindService      Kind = "service"
	KindListener     Kind = "listener"
	KindDNSAlias     Kind = "dns-alias"
	KindSecret       Kind = "secret"
	KindAccessLog    Kind = "access-log"
	KindDecryptGrant Kind = "decrypt-grant"
	KindIngressRule  Kind = "ingress-rule"
	KindAttachment   Kind = "sg-attachment"
)

// Resource is one declared resource in the graph.
type Resource struct {
	Kind  Kind
	Name  string
	Attrs map[string]string
}

// EdgeKind identifies the kind of a graph edge.
type EdgeKind string

const (
	// EdgeServes connects a load balancer to the service it fronts.
	EdgeServes EdgeKind = "serves"
	// EdgePublishes connects a DNS record to the load balancer it aliases.
	EdgePublishes EdgeKind = "publishes"
	// EdgeInjects connects a secret to the service consuming it by
	// reference.
	EdgeInjects EdgeKind = "injects"
	// EdgeGrantsDecrypt connects an execution identity to an encryption
	// key it may decrypt with.
	EdgeGrantsDecrypt EdgeKind = "grants-decrypt"
	// EdgeAllowsIngress connects a network perimeter to a source allowed
	// through it.
	EdgeAllowsIngress EdgeKind = "allows-ingress"
	// EdgeLogsTo connects a load balancer to its access-log storage.
	EdgeLogsTo EdgeKind = "logs-to"
	// EdgeGatedBy connects a load balancer to the security boundary
	// gating external access to it.
	EdgeGatedBy EdgeKind = "gated-by"
)

// Edge is one permission or network edge in the graph.
type Edge struct {
	Kind   EdgeKind
	From   string
	To     string
	Reason string
}

// Graph is an ordered record of declared resources and edges.
type Graph struct {
	resources []Resource
	edges     []Edge
}

// WithResource returns a new graph with r appended. g is not mutated.
func WithResource(g Graph, r Resource) Graph {
	resources := make([]Resource, len(g.resources), len(g.resources)+1)
	copy(resources, g.resources)
	return Graph{
		resources: append(resources, r),
		edges:     g.edges,
	}
}

// WithEdge returns a new graph with e appended. g is not mutated.
func WithEdge(g Graph, e Edge) Graph {
	edges := make([]Edge, len(g.edges), len(g.edges)+1)
	copy(edges, g.edges)
	return Graph{
		resources: g.resources,
		edges:     append(edges, e),
	}
}

// Resources returns the declared resources in declaration order.
func (g Graph) Resources() []Resource {
	out := make([]Resource, len(g.resources))
	copy(out, g.resources)
	return out
}

// Edges returns the declared edges in declaration order.
func (g Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// ResourcesOfKind returns the declared resources of the given kind, in
// declaration order.
func (g Graph) ResourcesOfKind(kind Kind) []Resource {
	var out []Resource
	for _, r := range g.resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// EdgesOfKind returns the declared edges of the given kind, in
// declaration order.
func (g Graph) EdgesOfKind(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether an edge of the given kind connects from to to.
func (g Graph) HasEdge(kind EdgeKind, from, to string) bool {
	for _, e := range g.edges {
		if e.Kind == kind && e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topology

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type graphSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&graphSuite{})

func (s *graphSuite) TestBuildersDoNotMutateInput(c *gc.C) {
	var empty Graph
	one := WithResource(empty, Resource{Kind: KindCluster, Name: "c1"})
	two := WithEdge(one, Edge{Kind: EdgeServes, From: "lb", To: "svc"})

	c.Assert(empty.Resources(), gc.HasLen, 0)
	c.Assert(empty.Edges(), gc.HasLen, 0)
	c.Assert(one.Resources(), gc.HasLen, 1)
	c.Assert(one.Edges(), gc.HasLen, 0)
	c.Assert(two.Resources(), gc.HasLen, 1)
	c.Assert(two.Edges(), gc.HasLen, 1)
}

func (s *graphSuite) TestDivergingBuildsShareNothing(c *gc.C) {
	base := WithResource(Graph{}, Resource{Kind: KindCluster, Name: "c1"})
	left := WithResource(base, Resource{Kind: KindService, Name: "left"})
	right := WithResource(base, Resource{Kind: KindService, Name: "right"})

	c.Assert(left.ResourcesOfKind(KindService), gc.HasLen, 1)
	c.Assert(left.ResourcesOfKind(KindService)[0].Name, gc.Equals, "left")
	c.Assert(right.ResourcesOfKind(KindService)[0].Name, gc.Equals, "right")
}

func (s *graphSuite) TestDeclarationOrderPreserved(c *gc.C) {
	g := Graph{}
	for _, name := range []string{"a", "b", "c"} {
		g = WithEdge(g, Edge{Kind: EdgeInjects, From: name, To: "svc"})
	}
	edges := g.Edges()
	c.Assert(edges, gc.HasLen, 3)
	c.Assert(edges[0].From, gc.Equals, "a")
	c.Assert(edges[1].From, gc.Equals, "b")
	c.Assert(edges[2].From, gc.Equals, "c")
}

func (s *graphSuite) TestHasEdge(c *gc.C) {
	g := WithEdge(Graph{}, Edge{Kind: EdgeGatedBy, From: "lb", To: "sg-allow"})
	c.Assert(g.HasEdge(EdgeGatedBy, "lb", "sg-allow"), jc.IsTrue)
	c.Assert(g.HasEdge(EdgeGatedBy, "lb", "sg-other"), jc.IsFalse)
	c.Assert(g.HasEdge(EdgeLogsTo, "lb", "sg-allow"), jc.IsFalse)
}

func (s *graphSuite) TestAccessorsCopy(c *gc.C) {
	g := WithResource(Graph{}, Resource{Kind: KindCluster, Name: "c1"})
	got := g.Resources()
	got[0].Name = "mutated"
	c.Assert(g.Resources()[0].Name, gc.Equals, "c1")
}

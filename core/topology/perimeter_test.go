// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topology

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type perimeterSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&perimeterSuite{})

func (s *perimeterSuite) TestRuleValidation(c *gc.C) {
	good := PerimeterRule{Group: "sg-db", FromGroup: "sg-svc", Port: 5432}
	c.Assert(good.Validate(), jc.ErrorIsNil)

	bad := good
	bad.Group = ""
	c.Assert(bad.Validate(), jc.Satisfies, errors.IsNotValid)

	bad = good
	bad.FromGroup = ""
	c.Assert(bad.Validate(), jc.Satisfies, errors.IsNotValid)

	bad = good
	bad.Port = 70000
	c.Assert(bad.Validate(), gc.ErrorMatches, "perimeter rule port 70000 not valid")
}

func (s *perimeterSuite) TestRuleFormatting(c *gc.C) {
	r := PerimeterRule{Group: "sg-db", FromGroup: "sg-svc", Port: 5432, Reason: "portal access"}
	c.Assert(r.String(), gc.Equals, "sg-db allows 5432/tcp from sg-svc")
}

func (s *perimeterSuite) TestMergeIsAdditive(c *gc.C) {
	existing := PerimeterRules{
		{Group: "sg-db", FromGroup: "sg-legacy", Port: 5432, Reason: "legacy batch"},
	}
	merged := existing.Merge(PerimeterRule{
		Group: "sg-db", FromGroup: "sg-svc", Port: 5432, Reason: "portal access",
	})
	c.Assert(merged, gc.HasLen, 2)
	c.Assert(merged.Contains(PerimeterRule{Group: "sg-db", FromGroup: "sg-legacy", Port: 5432}), jc.IsTrue)
	c.Assert(merged.Contains(PerimeterRule{Group: "sg-db", FromGroup: "sg-svc", Port: 5432}), jc.IsTrue)
	// The receiver is untouched.
	c.Assert(existing, gc.HasLen, 1)
}

func (s *perimeterSuite) TestMergeDuplicateIsNoOpNotError(c *gc.C) {
	rules := PerimeterRules{
		{Group: "sg-db", FromGroup: "sg-svc", Port: 5432, Reason: "portal access"},
	}
	merged := rules.Merge(PerimeterRule{
		Group: "sg-db", FromGroup: "sg-svc", Port: 5432, Reason: "same rule, different reason",
	})
	c.Assert(merged, gc.HasLen, 1)
	// The first reason wins; reason is not part of rule identity.
	c.Assert(merged[0].Reason, gc.Equals, "portal access")
}

func (s *perimeterSuite) TestMergeNeverRemoves(c *gc.C) {
	rules := PerimeterRules{
		{Group: "sg-db", FromGroup: "sg-one", Port: 5432},
		{Group: "sg-db", FromGroup: "sg-two", Port: 5432},
	}
	merged := rules.Merge(
		PerimeterRule{Group: "sg-db", FromGroup: "sg-three", Port: 5432},
		PerimeterRule{Group: "sg-db", FromGroup: "sg-one", Port: 5432},
	)
	c.Assert(merged, gc.HasLen, 3)
	for _, from := range []string{"sg-one", "sg-two", "sg-three"} {
		c.Check(merged.Contains(PerimeterRule{Group: "sg-db", FromGroup: from, Port: 5432}), jc.IsTrue)
	}
}

func (s *perimeterSuite) TestSort(c *gc.C) {
	rules := PerimeterRules{
		{Group: "sg-db", FromGroup: "sg-b", Port: 5432},
		{Group: "sg-app", FromGroup: "sg-z", Port: 8080},
		{Group: "sg-db", FromGroup: "sg-a", Port: 5432},
		{Group: "sg-db", FromGroup: "sg-a", Port: 443},
	}
	rules.Sort()
	c.Assert(rules, jc.DeepEquals, PerimeterRules{
		{Group: "sg-app", FromGroup: "sg-z", Port: 8080},
		{Group: "sg-db", FromGroup: "sg-a", Port: 443},
		{Group: "sg-db", FromGroup: "sg-a", Port: 5432},
		{Group: "sg-db", FromGroup: "sg-b", Port: 5432},
	})
}

// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package spec

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type specSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&specSuite{})

func (s *specSuite) TestMergeDefaultsFillsFixedContract(c *gc.C) {
	merged := MergeDefaults(ServiceSpec{NamePrefix: "catalog"})
	c.Assert(merged.Port, gc.Equals, ContainerPort)
	c.Assert(merged.MemoryMiB, gc.Equals, MemoryMiB)
	c.Assert(merged.CPUUnits, gc.Equals, CPUUnits)
	c.Assert(merged.Replicas, gc.Equals, Replicas)
	c.Assert(merged.EnvVars, gc.NotNil)
	c.Assert(merged.EnvVars, gc.HasLen, 0)
	c.Assert(merged.SecretEnvVars, gc.NotNil)
	c.Assert(merged.SecretEnvVars, gc.HasLen, 0)
}

func (s *specSuite) TestMergeDefaultsIsCallerWins(c *gc.C) {
	in := ServiceSpec{
		NamePrefix: "catalog",
		Port:       9000,
		Replicas:   5,
		EnvVars:    map[string]string{"CATALOG_FLAVOR": "demo"},
	}
	merged := MergeDefaults(in)
	c.Assert(merged.Port, gc.Equals, 9000)
	c.Assert(merged.Replicas, gc.Equals, 5)
	c.Assert(merged.MemoryMiB, gc.Equals, MemoryMiB)
	c.Assert(merged.EnvVars, jc.DeepEquals, map[string]string{"CATALOG_FLAVOR": "demo"})
}

func (s *specSuite) TestMergeDefaultsCopiesMaps(c *gc.C) {
	in := ServiceSpec{
		NamePrefix: "catalog",
		EnvVars:    map[string]string{"A": "1"},
	}
	merged := MergeDefaults(in)
	merged.EnvVars["B"] = "2"
	c.Assert(in.EnvVars, jc.DeepEquals, map[string]string{"A": "1"})
}

func (s *specSuite) TestServiceSpecValidate(c *gc.C) {
	err := ServiceSpec{}.Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)

	err = ServiceSpec{
		NamePrefix:    "catalog",
		SecretEnvVars: map[string]SecretHandle{"BROKEN": {}},
	}.Validate()
	c.Assert(err, gc.ErrorMatches, `secret env "BROKEN": secret handle without ARN not valid`)
}

func (s *specSuite) TestKeyOption(c *gc.C) {
	none := NoKey()
	c.Assert(none.Present(), jc.IsFalse)
	arn, ok := none.ARN()
	c.Assert(ok, jc.IsFalse)
	c.Assert(arn, gc.Equals, "")

	key := WithKey("arn:aws:kms:eu-west-1:000000000000:key/6f1aa7e2")
	c.Assert(key.Present(), jc.IsTrue)
	arn, ok = key.ARN()
	c.Assert(ok, jc.IsTrue)
	c.Assert(arn, gc.Equals, "arn:aws:kms:eu-west-1:000000000000:key/6f1aa7e2")
}

func (s *specSuite) TestSecretHandleWithField(c *gc.C) {
	h := SecretHandle{ARN: "arn:secret"}
	narrowed := h.WithField("username")
	c.Assert(narrowed.Field, gc.Equals, "username")
	// The receiver is unchanged.
	c.Assert(h.Field, gc.Equals, "")
}

func (s *specSuite) TestNetworkContextValidate(c *gc.C) {
	good := NetworkContext{
		VPCID:          "vpc-1",
		SubnetIDs:      []string{"subnet-1"},
		AllowedIngress: "sg-allow",
	}
	c.Assert(good.Validate(), jc.ErrorIsNil)

	bad := good
	bad.AllowedIngress = ""
	c.Assert(bad.Validate(), jc.Satisfies, errors.IsNotValid)

	bad = good
	bad.SubnetIDs = nil
	c.Assert(bad.Validate(), jc.Satisfies, errors.IsNotValid)
}

func (s *specSuite) TestDatabaseContextValidate(c *gc.C) {
	good := DatabaseContext{
		Endpoint:    Endpoint{Host: "db.internal", Port: 5432},
		Credentials: SecretHandle{ARN: "arn:secret"},
		Perimeter:   "sg-db",
	}
	c.Assert(good.Validate(), jc.ErrorIsNil)

	bad := good
	bad.Credentials = SecretHandle{}
	err := bad.Validate()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(err, gc.ErrorMatches, "database credentials: .*")

	bad = good
	bad.Endpoint.Port = 0
	c.Assert(bad.Validate(), jc.Satisfies, errors.IsNotValid)
}

func (s *specSuite) TestSecretRefsValidate(c *gc.C) {
	refs := SecretRefs{
		RefIdentityProvider: {ARN: "arn:idp"},
		RefPeerAdmin:        {ARN: "arn:peer"},
	}
	c.Assert(refs.Validate(), jc.ErrorIsNil)

	delete(refs, RefPeerAdmin)
	c.Assert(refs.Validate(), jc.Satisfies, errors.IsNotFound)
}

func (s *specSuite) TestBrandingEnvVarsSkipsEmpty(c *gc.C) {
	env := Branding{Title: "Acme Catalog", OrgName: "Acme"}.EnvVars()
	c.Assert(env, jc.DeepEquals, map[string]string{
		EnvPortalTitle:   "Acme Catalog",
		EnvPortalOrgName: "Acme",
	})
	c.Assert(Branding{}.EnvVars(), gc.HasLen, 0)
}

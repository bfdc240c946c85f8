// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topology

import (
	"fmt"
	"sort"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// PerimeterRule allows inbound traffic on a single TCP port from one
// security group to another. Reason carries the human-readable
// justification recorded against the rule for audit purposes; it is not
// part of rule identity.
type PerimeterRule struct {
	Group     string
	FromGroup string
	Port      int
	Reason    string
}

// Validate returns an error if the rule is not a well-formed allow-rule.
func (r PerimeterRule) Validate() error {
	if r.Group == "" {
		return errors.NotValidf("perimeter rule without target group")
	}
	if r.FromGroup == "" {
		return errors.NotValidf("perimeter rule without source group")
	}
	if r.Port <= 0 || r.Port > 65535 {
		return errors.NotValidf("perimeter rule port %d", r.Port)
	}
	return nil
}

// String returns the rule in "group allows port from source" form.
func (r PerimeterRule) String() string {
	return fmt.Sprintf("%s allows %d/tcp from %s", r.Group, r.Port, r.FromGroup)
}

func (r PerimeterRule) key() string {
	return fmt.Sprintf("%s|%d|%s", r.Group, r.Port, r.FromGroup)
}

// PerimeterRules is the set of inbound-allow rules on one or more
// network perimeters.
type PerimeterRules []PerimeterRule

// Merge returns the rules with add applied additively: rules already
// present are left as they are, new rules are appended, and nothing is
// ever removed. Adding a rule that already exists is not an error.
func (rs PerimeterRules) Merge(add ...PerimeterRule) PerimeterRules {
	out := make(PerimeterRules, len(rs), len(rs)+len(add))
	copy(out, rs)
	seen := set.NewStrings()
	for _, r := range rs {
		seen.Add(r.key())
	}
	for _, r := range add {
		if seen.Contains(r.key()) {
			continue
		}
		seen.Add(r.key())
		out = append(out, r)
	}
	return out
}

// Contains reports whether an equivalent rule (same target, port and
// source, regardless of reason) is present.
func (rs PerimeterRules) Contains(r PerimeterRule) bool {
	for _, have := range rs {
		if have.key() == r.key() {
			return true
		}
	}
	return false
}

// Sort sorts the rules by target group, then port, then source group.
func (rs PerimeterRules) Sort() {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Group != rs[j].Group {
			return rs[i].Group < rs[j].Group
		}
		if rs[i].Port != rs[j].Port {
			return rs[i].Port < rs[j].Port
		}
		return rs[i].FromGroup < rs[j].FromGroup
	})
}

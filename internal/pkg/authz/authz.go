// Package authz builds the casbin enforcer guarding administrative endpoints.
//
// Policies are small and static, so they are loaded from configuration into
// an in-memory enforcer at startup instead of a persisted adapter.
package authz

import (
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Rules lists "p" (role, object, action) and "g" (subject, role) lines.
type Rules struct {
	Policies  [][]string
	Groupings [][]string
}

// NewEnforcer returns an enforcer loaded with rules.
func NewEnforcer(rules Rules) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if len(rules.Policies) > 0 {
		if _, err := e.AddPolicies(rules.Policies); err != nil {
			return nil, err
		}
	}

	if len(rules.Groupings) > 0 {
		if _, err := e.AddGroupingPolicies(rules.Groupings); err != nil {
			return nil, err
		}
	}

	return e, nil
}

package services

import (
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"maternar/config"
	"maternar/models"
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
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Authorizer answers role permission questions with a casbin enforcer whose
// policies come from configuration.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer(policies []config.RBACPolicy) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p.Role, p.Resource, p.Action); err != nil {
			return nil, fmt.Errorf("add policy %s %s %s: %w", p.Role, p.Resource, p.Action, err)
		}
	}
	// admins inherit every user permission
	if _, err := enforcer.AddGroupingPolicy(models.RoleAdmin, models.RoleUser); err != nil {
		return nil, fmt.Errorf("add role inheritance: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Can reports whether role may perform action on resource.
func (a *Authorizer) Can(role, resource, action string) bool {
	allowed, err := a.enforcer.Enforce(role, resource, action)
	if err != nil {
		slog.Error("casbin enforce error", "role", role, "resource", resource, "action", action, "error", err)
		return false
	}
	return allowed
}

// Require returns ErrForbidden unless u may perform action on resource.
func (a *Authorizer) Require(u *models.User, resource, action string) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !a.Can(u.Role, resource, action) {
		return ErrForbidden
	}
	return nil
}

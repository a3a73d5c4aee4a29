// Package permission decides whether a user may view or edit a module.
// Grants live on the user record; they are mirrored into a casbin policy
// keyed by user id the first time the user is checked and whenever the
// record changes.
package permission

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// Actions.
const (
	ActionView = "view"
	ActionEdit = "edit"
)

const wildcard = "*"

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

type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	synced   map[uint64]string
	log      *slog.Logger
}

// NewEnforcer builds an in-memory enforcer.  The admin role is granted
// every module and action.
func NewEnforcer() (*Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := e.AddPolicy(roleSubject(model.RoleAdmin), wildcard, wildcard); err != nil {
		return nil, fmt.Errorf("failed to add admin policy: %w", err)
	}
	return &Enforcer{
		enforcer: e,
		synced:   map[uint64]string{},
		log:      logger.WithComponent("permission"),
	}, nil
}

func userSubject(id uint64) string   { return "user:" + strconv.FormatUint(id, 10) }
func roleSubject(role string) string { return "role:" + role }

// policiesFor lists the casbin rules granted by u's permission map.
// Admin Control edit grants everything; edit on a module implies view.
func policiesFor(u model.User) [][]string {
	sub := userSubject(u.ID)
	if u.Permissions[model.ModuleAdminControl].Edit {
		return [][]string{{sub, wildcard, wildcard}}
	}
	var out [][]string
	for module, p := range u.Permissions {
		if p.View || p.Edit {
			out = append(out, []string{sub, module, ActionView})
		}
		if p.Edit {
			out = append(out, []string{sub, module, ActionEdit})
		}
	}
	return out
}

func fingerprint(u model.User) string {
	parts := []string{u.Role}
	for _, p := range policiesFor(u) {
		parts = append(parts, p[1]+"/"+p[2])
	}
	sort.Strings(parts[1:])
	return strings.Join(parts, "|")
}

// Sync mirrors u's role and grants into the policy if they changed since
// the last call.
func (e *Enforcer) Sync(u model.User) error {
	fp := fingerprint(u)
	e.mu.RLock()
	current := e.synced[u.ID] == fp
	e.mu.RUnlock()
	if current {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	sub := userSubject(u.ID)
	if _, err := e.enforcer.RemoveFilteredPolicy(0, sub); err != nil {
		return fmt.Errorf("failed to clear policies: %w", err)
	}
	if _, err := e.enforcer.DeleteRolesForUser(sub); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	if rules := policiesFor(u); len(rules) > 0 {
		if _, err := e.enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("failed to add policies: %w", err)
		}
	}
	if u.Role != "" {
		if _, err := e.enforcer.AddRoleForUser(sub, roleSubject(u.Role)); err != nil {
			return fmt.Errorf("failed to add role for user: %w", err)
		}
	}
	e.synced[u.ID] = fp
	return nil
}

// Forget drops u's policies, e.g. after the user is deleted.
func (e *Enforcer) Forget(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := userSubject(id)
	_, _ = e.enforcer.RemoveFilteredPolicy(0, sub)
	_, _ = e.enforcer.DeleteRolesForUser(sub)
	delete(e.synced, id)
}

// Allowed syncs u and reports whether it may perform action on module.
func (e *Enforcer) Allowed(u model.User, module, action string) (bool, error) {
	if err := e.Sync(u); err != nil {
		return false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	ok, err := e.enforcer.Enforce(userSubject(u.ID), module, action)
	if err != nil {
		e.log.Error("permission check failed", "error", err, "user_id", u.ID, "module", module, "action", action)
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return ok, nil
}

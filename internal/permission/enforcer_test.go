package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

func allowed(t *testing.T, e *Enforcer, u model.User, module, action string) bool {
	t.Helper()
	ok, err := e.Allowed(u, module, action)
	require.NoError(t, err)
	return ok
}

func TestAdminRoleAllowsEverything(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	admin := model.User{ID: 1, Role: model.RoleAdmin}
	for _, m := range model.Modules {
		assert.True(t, allowed(t, e, admin, m, ActionEdit), m)
	}
}

func TestAdminControlEditIsGlobal(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	u := model.User{ID: 2, Role: model.RoleOperator, Permissions: model.Permissions{
		model.ModuleAdminControl: {Edit: true},
	}}
	assert.True(t, allowed(t, e, u, model.ModuleWorkOrders, ActionEdit))
	assert.True(t, allowed(t, e, u, model.ModuleUsers, ActionView))
}

func TestModuleGrants(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	u := model.User{ID: 3, Role: model.RoleMechanic, Permissions: model.Permissions{
		model.ModuleTickets:      {View: true},
		model.ModuleReadings:     {Edit: true},
		model.ModuleAdminControl: {View: true},
	}}
	assert.True(t, allowed(t, e, u, model.ModuleTickets, ActionView))
	assert.False(t, allowed(t, e, u, model.ModuleTickets, ActionEdit))
	assert.True(t, allowed(t, e, u, model.ModuleReadings, ActionView))
	assert.True(t, allowed(t, e, u, model.ModuleReadings, ActionEdit))
	assert.False(t, allowed(t, e, u, model.ModuleAssets, ActionView))
	assert.False(t, allowed(t, e, u, model.ModuleWorkOrders, ActionEdit))
}

func TestSyncPicksUpChanges(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	u := model.User{ID: 4, Role: model.RoleOperator, Permissions: model.Permissions{
		model.ModuleAssets: {View: true, Edit: true},
	}}
	assert.True(t, allowed(t, e, u, model.ModuleAssets, ActionEdit))

	u.Permissions = model.Permissions{model.ModuleAssets: {View: true}}
	assert.False(t, allowed(t, e, u, model.ModuleAssets, ActionEdit))

	u.Role = model.RoleAdmin
	assert.True(t, allowed(t, e, u, model.ModuleAssets, ActionEdit))

	e.Forget(u.ID)
	assert.True(t, allowed(t, e, u, model.ModuleAssets, ActionEdit))
	other := model.User{ID: 5, Role: model.RoleOperator}
	assert.False(t, allowed(t, e, other, model.ModuleAssets, ActionView))
}

func TestPresets(t *testing.T) {
	p, err := LoadPresets()
	require.NoError(t, err)

	assert.True(t, p.For(model.RoleAdmin)[model.ModuleAdminControl].Edit)
	mech := p.For(model.RoleMechanic)
	assert.True(t, mech[model.ModuleTickets].Edit)
	assert.False(t, mech[model.ModuleUsers].View)
	assert.Empty(t, p.For("ghost"))

	mech[model.ModuleUsers] = model.Permission{View: true}
	assert.False(t, p.For(model.RoleMechanic)[model.ModuleUsers].View)
}

func TestParsePresetsRejectsUnknown(t *testing.T) {
	_, err := ParsePresets([]byte("pilot:\n  Dashboard: {view: true}\n"))
	assert.ErrorContains(t, err, "unknown role")

	_, err = ParsePresets([]byte("operator:\n  Spaceships: {view: true}\n"))
	assert.ErrorContains(t, err, "unknown module")
}

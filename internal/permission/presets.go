package permission

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

//go:embed presets.yaml
var presetsYAML []byte

// Presets maps a role to the permissions a new user of that role receives.
type Presets map[string]model.Permissions

// LoadPresets parses the embedded role presets.
func LoadPresets() (Presets, error) {
	return ParsePresets(presetsYAML)
}

// ParsePresets decodes presets from YAML and rejects unknown roles or
// modules.
func ParsePresets(data []byte) (Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse permission presets: %w", err)
	}
	known := make(map[string]bool, len(model.Modules))
	for _, m := range model.Modules {
		known[m] = true
	}
	for role, perms := range p {
		if !model.ValidRole(role) {
			return nil, fmt.Errorf("permission presets: unknown role %q", role)
		}
		for module := range perms {
			if !known[module] {
				return nil, fmt.Errorf("permission presets: role %s: unknown module %q", role, module)
			}
		}
	}
	return p, nil
}

// For returns a copy of the preset for role, empty when there is none.
func (p Presets) For(role string) model.Permissions {
	out := model.Permissions{}
	for m, perm := range p[role] {
		out[m] = perm
	}
	return out
}

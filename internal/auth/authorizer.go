package auth

import (
	"fmt"
	"slices"
)

// Capability is the set of roles allowed to run an operation category.
type Capability struct {
	name  string
	roles []Role
}

var (
	CapabilityRead   = NewCapability("read", RoleAdmin, RoleUser)
	CapabilityAdjust = NewCapability("adjust", RoleAdmin, RoleUser)
	CapabilityManage = NewCapability("manage", RoleAdmin)
)

func NewCapability(name string, roles ...Role) Capability {
	return Capability{name: name, roles: slices.Clone(roles)}
}

func (c Capability) Allows(role Role) bool {
	if role == RoleUnknown {
		return false
	}

	return slices.Contains(c.roles, role)
}

func (c Capability) String() string {
	return c.name
}

func Authorize(role Role, capability Capability) error {
	if !capability.Allows(role) {
		return fmt.Errorf("%w: %s cannot %s", ErrInsufficientRole, role, capability)
	}

	return nil
}

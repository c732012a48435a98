package models

import (
	"fmt"
	"strings"
)

// UserRole is the canonical organizational role used for every authorization decision.
type UserRole string

const (
	RoleProjectManager               UserRole = "TRAINER_PREPARATION_PROJECT_MANAGER"
	RoleProgramSupervisor            UserRole = "PROGRAM_SUPERVISOR"
	RoleDevelopmentManagementOfficer UserRole = "DEVELOPMENT_MANAGEMENT_OFFICER"
	RoleProvincialDevelopmentOfficer UserRole = "PROVINCIAL_DEVELOPMENT_OFFICER"
	RoleTrainer                      UserRole = "TRAINER"
	RoleAdmin                        UserRole = "ADMIN"
)

var roleAliases = map[string]UserRole{
	"PM":  RoleProjectManager,
	"SV":  RoleProgramSupervisor,
	"CC":  RoleDevelopmentManagementOfficer,
	"PDO": RoleProvincialDevelopmentOfficer,
	"TR":  RoleTrainer,
}

// AllRoles lists every canonical role.
func AllRoles() []UserRole {
	return []UserRole{
		RoleProjectManager,
		RoleProgramSupervisor,
		RoleDevelopmentManagementOfficer,
		RoleProvincialDevelopmentOfficer,
		RoleTrainer,
		RoleAdmin,
	}
}

// Valid reports whether r is one of the canonical roles.
func (r UserRole) Valid() bool {
	for _, role := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdministrative reports whether the role overrides workflow authority.
func (r UserRole) IsAdministrative() bool {
	return r == RoleAdmin
}

// IsApprover reports whether the role owns an approval tier or administers the workflow.
func (r UserRole) IsApprover() bool {
	switch r {
	case RoleProjectManager, RoleProgramSupervisor, RoleDevelopmentManagementOfficer, RoleAdmin:
		return true
	}
	return false
}

// ParseUserRole maps external role strings, including the legacy short codes, onto the canonical enum.
func ParseUserRole(raw string) (UserRole, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if alias, ok := roleAliases[key]; ok {
		return alias, nil
	}
	role := UserRole(key)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserRole(t *testing.T) {
	cases := map[string]UserRole{
		"PM":                                  RoleProjectManager,
		" sv ":                                RoleProgramSupervisor,
		"cc":                                  RoleDevelopmentManagementOfficer,
		"PDO":                                 RoleProvincialDevelopmentOfficer,
		"TR":                                  RoleTrainer,
		"admin":                               RoleAdmin,
		"TRAINER_PREPARATION_PROJECT_MANAGER": RoleProjectManager,
	}
	for raw, want := range cases {
		got, err := ParseUserRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseUserRoleRejectsLegacyDetailNames(t *testing.T) {
	for _, raw := range []string{"coordinator", "supervisor", "manager", ""} {
		_, err := ParseUserRole(raw)
		assert.Error(t, err, raw)
	}
}

func TestRolePredicates(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdministrative())
	assert.False(t, RoleProjectManager.IsAdministrative())
	assert.True(t, RoleDevelopmentManagementOfficer.IsApprover())
	assert.False(t, RoleTrainer.IsApprover())
	assert.False(t, RoleProvincialDevelopmentOfficer.IsApprover())
	assert.False(t, UserRole("SUPERADMIN").Valid())
}

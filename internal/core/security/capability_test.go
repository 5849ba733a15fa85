package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_UnionOfRoles(t *testing.T) {
	caps := Resolve([]string{RoleStorekeeper, RoleProduction})

	assert.True(t, caps.Has(CapDocumentsConfirm))
	assert.True(t, caps.Has(CapProductionOperate))
	assert.False(t, caps.Has(CapProductionRevert))
	assert.False(t, caps.Has(CapMaintenance))
}

func TestResolve_UnknownRole(t *testing.T) {
	assert.Empty(t, Resolve([]string{"cashier"}))
}

func TestAll_IncludesAdminOnlyCapabilities(t *testing.T) {
	caps := All()
	assert.True(t, caps.Has(CapProductionDelete))
	assert.True(t, caps.Has(CapMaintenance))
	assert.Equal(t, len(roleCapabilities[RoleAdmin]), len(caps.List()))
}

package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/coordpool/pkg/types"
)

func TestValidateTypeRejectsUnknown(t *testing.T) {
	err := ValidateType(Request{Type: types.TaskType("bogus")})
	assert.ErrorIs(t, err, ErrInvalidTaskType)
}

func TestValidateTypeAcceptsAllKnownTypes(t *testing.T) {
	for tt := range types.ValidTaskTypes {
		err := ValidateType(Request{Type: tt})
		assert.NoError(t, err, "type %s should validate", tt)
	}
}

func TestAdmitRejectsQueueFull(t *testing.T) {
	_, err := Admit(Request{Type: types.TaskGeneral}, true, true)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestAdmitUngatedTypeAlwaysAdmittedUngated(t *testing.T) {
	d, err := Admit(Request{Type: types.TaskGeneral}, false, false)
	require.NoError(t, err)
	assert.False(t, d.Gated)
}

func TestAdmitGatedTypeHeldWhenDiscoveryDown(t *testing.T) {
	d, err := Admit(Request{Type: types.TaskDiscovery}, false, false)
	require.NoError(t, err)
	assert.True(t, d.Gated)
}

func TestAdmitStrictGatedTypeRejectedWhenDiscoveryDown(t *testing.T) {
	_, err := Admit(Request{Type: types.TaskMigration, Strict: true}, false, false)
	assert.ErrorIs(t, err, ErrDegraded)
}

func TestAdmitGatedTypeNotHeldWhenDiscoveryUp(t *testing.T) {
	d, err := Admit(Request{Type: types.TaskDiscovery}, false, true)
	require.NoError(t, err)
	assert.False(t, d.Gated)
}

func TestAdmitInvalidTypeChecksBeforeQueueFull(t *testing.T) {
	_, err := Admit(Request{Type: types.TaskType("bogus")}, true, true)
	assert.ErrorIs(t, err, ErrInvalidTaskType)
}

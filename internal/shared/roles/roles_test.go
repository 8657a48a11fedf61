package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHas(t *testing.T) {
	tests := []struct {
		name   string
		held   []string
		role   string
		has    bool
		strict bool
	}{
		{"employee always", nil, Employee, true, true},
		{"own role", []string{Approver}, Approver, true, true},
		{"missing role", []string{Approver}, Procurement, false, false},
		{"admin implies approver", []string{Admin}, Approver, true, false},
		{"admin implies procurement", []string{Admin}, Procurement, true, false},
		{"admin holds admin", []string{Admin}, Admin, true, true},
		{"case insensitive request", []string{Procurement}, "PROCUREMENT", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.has, Has(tt.held, tt.role))
			assert.Equal(t, tt.strict, HasStrict(tt.held, tt.role))
		})
	}
}

func TestUserRoles(t *testing.T) {
	assert.Equal(t, []string{"admin", "approver"}, UserRoles(true, []string{"Approver"}))
	assert.Equal(t, []string{"admin"}, UserRoles(true, []string{"admin"}))
	assert.Empty(t, UserRoles(false, nil))
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]string{" Procurement", "employee", "approver", "procurement"})
	require.NoError(t, err)
	assert.Equal(t, []string{"approver", "procurement"}, got)

	_, err = Normalize([]string{"superuser"})
	assert.Error(t, err)

	got, err = Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

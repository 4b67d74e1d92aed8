package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONScan(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    JSON
		wantErr bool
	}{
		{"bytes", []byte(`{"items":2}`), JSON{"items": float64(2)}, false},
		{"string", `{"model":"linear"}`, JSON{"model": "linear"}, false},
		{"nil", nil, nil, false},
		{"unsupported", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j JSON
			err := j.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, j)
		})
	}
}

func TestJSONValueNil(t *testing.T) {
	var j JSON
	v, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	out, err := j.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestUserClaimsPermissions(t *testing.T) {
	claims := &UserClaims{Role: RoleService, Permissions: GetDefaultPermissions(RoleService)}
	assert.True(t, claims.HasPermission(PermissionRiskScore))
	assert.False(t, claims.HasPermission(PermissionBlacklistWrite))
	assert.Equal(t, "unknown", claims.Principal())

	claims.Email = "ops@orus.dev"
	assert.Equal(t, "ops@orus.dev", claims.Principal())
}

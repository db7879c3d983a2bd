package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{OrgID: "org1", Role: RoleOrganization})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "org1", id.Actor())
	require.False(t, id.IsAdmin())
}

func TestRoleValid(t *testing.T) {
	require.True(t, RoleAdmin.Valid())
	require.True(t, RoleOrganization.Valid())
	require.False(t, Role("donor").Valid())
	require.Equal(t, "admin", Identity{Role: RoleAdmin}.Actor())
}

func TestHashKey(t *testing.T) {
	require.Len(t, HashKey("secret"), 64)
	require.Equal(t, HashKey("secret"), HashKey("secret"))
	require.NotEqual(t, HashKey("secret"), HashKey("other"))
}

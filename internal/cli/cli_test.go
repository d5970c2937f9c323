package cli

import (
	"testing"

	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRootCommands(t *testing.T) {
	root := RootCmd()
	for _, name := range []string{"serve", "create-admin"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	cmd, _, err := root.Find([]string{"create-admin"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("email"))
	assert.NotNil(t, cmd.Flags().Lookup("password"))
}

func TestCreateAdmin(t *testing.T) {
	store := users.NewMemoryStore()
	in := users.RegisterInput{Name: "Owner", Email: "Owner@Example.com", Password: "Str0ng!pass"}

	u, err := createAdmin(t.Context(), store, bcrypt.MinCost, nil, in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "owner@example.com", u.Email)

	// running it again promotes rather than failing
	again, err := createAdmin(t.Context(), store, bcrypt.MinCost, nil, in)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = createAdmin(t.Context(), store, bcrypt.MinCost, nil, users.RegisterInput{Name: "X", Email: "bad", Password: "weak"})
	require.Error(t, err)
	_, ok := validation.Messages(err)
	assert.True(t, ok)
}

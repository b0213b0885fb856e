package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdemdnmz2/WebQuery/internal/data"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	db, err := data.InitDB(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAuthService(data.NewUserRepo(db))
}

func TestAuthService_RegisterAndAuthenticate(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "hunter2", user.Password, "password is stored hashed")

	got, err := svc.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthService_AuthenticateRejectsBadPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register("alice", "", "hunter2")
	require.NoError(t, err)

	_, err = svc.Authenticate("alice", "wrong")
	assert.EqualError(t, err, "invalid credentials")

	// Unknown users get the same error as wrong passwords.
	_, err = svc.Authenticate("nobody", "whatever")
	assert.EqualError(t, err, "invalid credentials")
}

func TestAuthService_CreateAdminOnlyOnEmptyDatabase(t *testing.T) {
	svc := newAuthService(t)

	admin, err := svc.CreateAdmin("root", "", "rootpw")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, err = svc.CreateAdmin("root2", "", "rootpw")
	assert.EqualError(t, err, "setup already completed")
}

func TestAuthService_ResetPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register("alice", "", "oldpw")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword("alice", "newpw"))

	_, err = svc.Authenticate("alice", "oldpw")
	assert.Error(t, err)
	_, err = svc.Authenticate("alice", "newpw")
	assert.NoError(t, err)

	err = svc.ResetPassword("nobody", "pw")
	assert.ErrorContains(t, err, "user not found")
}

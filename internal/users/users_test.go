package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/testsupport"
	"sitepulse/internal/users"
)

func TestCreateAdminUser(t *testing.T) {
	t.Run("creates a user with a hashed password", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)

		require.NoError(t, users.CreateAdminUser(db, "admin@example.com", "secret-password"))

		user, err := users.FindByEmail(db, "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", user.Email)
		assert.NotEqual(t, "secret-password", user.EncryptedPassword)
	})

	t.Run("refuses a duplicate email", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)

		err := users.CreateAdminUser(db, "admin@example.com", "another-password")
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("requires email and password", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)

		assert.Error(t, users.CreateAdminUser(db, "", "secret"))
		assert.Error(t, users.CreateAdminUser(db, "empty@example.com", ""))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("accepts the right password", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		testsupport.CreateTestUserForAuth(t, db, "auth@example.com", "hunter2secret")

		user, err := users.Authenticate(db, "auth@example.com", "hunter2secret")
		require.NoError(t, err)
		assert.Equal(t, "auth@example.com", user.Email)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)

		_, err := users.Authenticate(db, "auth@example.com", "wrong")
		assert.Error(t, err)
	})

	t.Run("rejects an unknown email", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)

		_, err := users.Authenticate(db, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})
}

func TestChangePassword(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateTestUserForAuth(t, db, "rotate@example.com", "old-password")

	require.NoError(t, users.ChangePassword(db, "rotate@example.com", "new-password"))

	_, err := users.Authenticate(db, "rotate@example.com", "old-password")
	assert.Error(t, err)

	_, err = users.Authenticate(db, "rotate@example.com", "new-password")
	assert.NoError(t, err)
}

func TestSetupAdminUserIfNotExists(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	users.SetupAdminUserIfNotExists(db, "seed@example.com")

	user, err := users.FindByEmail(db, "seed@example.com")
	require.NoError(t, err)
	original := user.EncryptedPassword

	// A second call is a no-op for an existing email
	users.SetupAdminUserIfNotExists(db, "seed@example.com")
	user, err = users.FindByEmail(db, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, original, user.EncryptedPassword)
}

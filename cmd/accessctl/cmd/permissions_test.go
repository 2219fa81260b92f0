package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/accessdesk/internal/client"
	"github.com/accessdesk/accessdesk/internal/rbac"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSession(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := client.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(&client.Session{
		UserID:      1,
		Email:       "root@example.com",
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		RoleName:    "USER",
		Permissions: rbac.Matrix{"user": {"read": true, "delete": false}},
	}))
	return path
}

func TestCanUsesCachedMatrix(t *testing.T) {
	path := writeSession(t)

	out, err := runCLI(t, "--session-file", path, "can", "user", "read")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed user.read")

	_, err = runCLI(t, "--session-file", path, "can", "user", "delete")
	assert.ErrorIs(t, err, errDenied)

	_, err = runCLI(t, "--session-file", path, "can", "role", "read")
	assert.ErrorIs(t, err, errDenied)
}

func TestCanWithoutSessionDenies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	_, err := runCLI(t, "--session-file", path, "can", "user", "read")
	assert.ErrorIs(t, err, errDenied)
}

func TestMatrixPrintsEveryCell(t *testing.T) {
	path := writeSession(t)
	out, err := runCLI(t, "--session-file", path, "matrix")
	require.NoError(t, err)
	assert.Contains(t, out, "Role: USER")
	assert.Regexp(t, `user\s+delete\s+false`, out)
	assert.Regexp(t, `user\s+read\s+true`, out)
}

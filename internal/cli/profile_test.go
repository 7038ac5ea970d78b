package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/osgiliath/console/testing"
)

func TestLoadProfileMissingFileIsEmpty(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Profile{}, p)
}

func TestProfileSaveRoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Profile{BackendURL: "http://billing.test/api", Username: "alice", Token: "tok"}
	require.NoError(t, in.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadProfileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: [unclosed"), 0o600))
	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestProfileCredentialsPersistSetAndInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	p := &Profile{BackendURL: "http://billing.test/api"}
	creds := newProfileCredentials(p, path)
	assert.False(t, creds.Authenticated())

	creds.Set("tok", "alice")
	require.NoError(t, creds.Err())
	stored, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", stored.Token)
	assert.Equal(t, "alice", stored.Username)
	assert.Equal(t, "http://billing.test/api", stored.BackendURL)

	creds.Invalidate()
	require.NoError(t, creds.Err())
	stored, err = LoadProfile(path)
	require.NoError(t, err)
	assert.Empty(t, stored.Token)
	assert.False(t, creds.Authenticated())
}

func TestProfileCredentialsRestoreStoredToken(t *testing.T) {
	creds := newProfileCredentials(&Profile{Token: "tok", Username: "alice"}, filepath.Join(t.TempDir(), "c.yaml"))
	assert.True(t, creds.Authenticated())
	assert.Equal(t, "tok", creds.Token())
	assert.Equal(t, "alice", creds.Username())
}

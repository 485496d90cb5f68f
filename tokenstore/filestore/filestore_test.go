package filestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/tokenstore/filestore"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	fs, err := filestore.Open(path)
	require.NoError(t, err)
	require.Equal(t, "", fs.Get(tokenstore.AccessToken))

	fs.Set(tokenstore.AccessToken, "access-1")
	fs.Set(tokenstore.IntendedRoute, "/Temoins")

	reopened, err := filestore.Open(path)
	require.NoError(t, err)
	require.Equal(t, "access-1", reopened.Get(tokenstore.AccessToken))
	require.Equal(t, "/Temoins", reopened.Get(tokenstore.IntendedRoute))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ClearSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := filestore.Open(path)
	require.NoError(t, err)

	for _, k := range tokenstore.Keys {
		fs.Set(k, "v")
	}
	fs.ClearSession()

	reopened, err := filestore.Open(path)
	require.NoError(t, err)
	for _, k := range tokenstore.SessionKeys {
		require.Empty(t, reopened.Get(k))
	}
	require.Equal(t, "v", reopened.Get(tokenstore.LogoutMessage))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := filestore.Open(path)
	require.Error(t, err)
}

func TestFileStore_NullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))

	fs, err := filestore.Open(path)
	require.NoError(t, err)
	require.Empty(t, fs.Get(tokenstore.AccessToken))
	require.NotPanics(t, func() { fs.Set(tokenstore.AccessToken, "x") })
	require.Equal(t, "x", fs.Get(tokenstore.AccessToken))
}

package coordinatorconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentitySaveLoadRoundTrip(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultIdentityFile)
	require.NoError(t, SaveIdentity(path, id))

	loaded, err := LoadIdentity(path)
	require.NoError(t, err)
	require.True(t, id.Key.Equal(loaded.Key))
}

func TestLoadIdentityRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIdentityFile)
	require.NoError(t, os.WriteFile(path, []byte("not-hex"), 0600))

	_, err := LoadIdentity(path)
	require.ErrorIs(t, err, ErrInvalidIdentityFile)
}

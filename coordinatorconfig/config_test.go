package coordinatorconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/crypto"
)

func TestConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	c := New(WithConfigFolder(dir), WithListenAddr(":9999"))
	require.Equal(t, dir, c.ConfigFolder())
	require.Equal(t, filepath.Join(dir, DefaultDBFolder), c.DBFolder())
	require.Equal(t, ":9999", c.ListenAddr())
	require.NoError(t, c.EnsureDirectories())
}

func TestOperatorSetSaveLoadRoundTrip(t *testing.T) {
	s1, err := crypto.RandomScalar()
	require.NoError(t, err)
	s2, err := crypto.RandomScalar()
	require.NoError(t, err)

	set := &OperatorSet{
		Operators: []crypto.Point{s1.Point(), s2.Point()},
		Threshold: 2,
	}

	path := filepath.Join(t.TempDir(), "operators.toml")
	require.NoError(t, SaveOperatorSet(path, set))

	loaded, err := LoadOperatorSet(path)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Threshold)
	require.Len(t, loaded.Operators, 2)
	require.True(t, loaded.Operators[0].Equal(s1.Point()))
	require.True(t, loaded.Operators[1].Equal(s2.Point()))
}

func TestLoadOperatorSetRejectsBadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("operators = [\"not-hex\"]\nthreshold = 1\n"), 0640))

	_, err := LoadOperatorSet(path)
	require.ErrorIs(t, err, ErrInvalidOperatorKey)
}

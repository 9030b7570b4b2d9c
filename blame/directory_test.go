package blame

import (
	"testing"
	"time"

	clock "github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/crypto"
)

type memPersister struct {
	records map[[32]byte]Record
}

func newMemPersister() *memPersister {
	return &memPersister{records: make(map[[32]byte]Record)}
}

func (m *memPersister) PutBlame(key [32]byte, record Record) error {
	m.records[key] = record
	return nil
}

func (m *memPersister) LoadBlames() (map[[32]byte]Record, error) {
	out := make(map[[32]byte]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func mustKey(t *testing.T) crypto.Point {
	t.Helper()
	s, err := crypto.RandomScalar()
	require.NoError(t, err)
	return s.Point()
}

func newTestDirectory(t *testing.T) (*Directory, *memPersister, clock.FakeClock) {
	t.Helper()
	persister := newMemPersister()
	fc := clock.NewFakeClock()
	d, err := NewDirectory(persister)
	require.NoError(t, err)
	d.clock = fc
	return d, persister, fc
}

func TestFirstBlameUsesFlatWindow(t *testing.T) {
	d, _, fc := newTestDirectory(t)
	key := mustKey(t)

	require.NoError(t, d.Blame(key))
	rec, ok := d.Record(key)
	require.True(t, ok)
	require.Equal(t, uint16(1), rec.BlameCount)
	require.Equal(t, uint64(fc.Now().Unix())+initialBlameSecsWindow, rec.BlacklistedUntil)
}

func TestRepeatBlameEscalatesExponentially(t *testing.T) {
	d, _, fc := newTestDirectory(t)
	key := mustKey(t)

	require.NoError(t, d.Blame(key))
	require.NoError(t, d.Blame(key))
	rec, ok := d.Record(key)
	require.True(t, ok)
	require.Equal(t, uint16(2), rec.BlameCount)
	require.Equal(t, uint64(fc.Now().Unix())+4, rec.BlacklistedUntil)

	require.NoError(t, d.Blame(key))
	rec, _ = d.Record(key)
	require.Equal(t, uint16(3), rec.BlameCount)
	require.Equal(t, uint64(fc.Now().Unix())+8, rec.BlacklistedUntil)
}

func TestIsBlacklistedExpires(t *testing.T) {
	d, _, fc := newTestDirectory(t)
	key := mustKey(t)

	require.False(t, d.IsBlacklisted(key))
	require.NoError(t, d.Blame(key))
	require.True(t, d.IsBlacklisted(key))

	fc.Advance(time.Duration(initialBlameSecsWindow+1) * time.Second)
	require.False(t, d.IsBlacklisted(key))
}

func TestBlamePersistsAcrossDirectories(t *testing.T) {
	d, persister, _ := newTestDirectory(t)
	key := mustKey(t)
	require.NoError(t, d.Blame(key))

	reopened, err := NewDirectory(persister)
	require.NoError(t, err)
	rec, ok := reopened.Record(key)
	require.True(t, ok)
	require.Equal(t, uint16(1), rec.BlameCount)
}

func TestNewDirectoryRejectsNilPersister(t *testing.T) {
	_, err := NewDirectory(nil)
	require.ErrorIs(t, err, ErrNilPersister)
}

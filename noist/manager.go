package noist

import (
	"sort"
	"sync"

	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/log"
	"github.com/brollup/coordinator/noist/vse"
)

// SetupPersister is the durable side of a Manager: every validated VSE setup
// is written through to it, and directories evicted from the hot set are
// rehydrated from it on demand. Implemented by store.SetupStore; declared
// here to avoid an import cycle between noist and store.
type SetupPersister interface {
	PutSetup(height uint64, signatories []crypto.Point, setup *vse.Setup) error
	LoadSetup(height uint64) (signatories []crypto.Point, setup *vse.Setup, found bool, err error)
	Heights() ([]uint64, error)
}

// hotDirectories is how many directories (by descending height) the manager
// keeps resident in memory. The original keeps only the active directory
// and the one immediately before it hot; older directories are flushed to
// the setup store and reloaded on demand.
const hotDirectories = 2

// Manager owns every DKG directory the coordinator has ever run, keyed by
// height, with a persistent backing store for the setups and pruning of all
// but the most recent directories from memory.
type Manager struct {
	mu         sync.RWMutex
	log        log.Logger
	store      SetupPersister
	directories map[uint64]*Directory
}

// NewManager constructs an empty manager backed by store.
func NewManager(l log.Logger, store SetupPersister) *Manager {
	return &Manager{
		log:         l,
		store:       store,
		directories: make(map[uint64]*Directory),
	}
}

// InsertSetup registers a new directory at height for signatories, using
// setup as its VSE setup, and persists it. height must be strictly greater
// than every previously inserted height.
func (m *Manager) InsertSetup(height uint64, signatories []crypto.Point, setup *vse.Setup) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.PutSetup(height, signatories, setup); err != nil {
		return nil, err
	}

	dir := NewDirectory(height, signatories, setup)
	m.directories[height] = dir
	m.prune()
	return dir, nil
}

// ActiveDirectory returns the directory at the highest known height,
// loading it from the store if it was pruned from memory.
func (m *Manager) ActiveDirectory() (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	height, err := m.activeHeightLocked()
	if err != nil {
		return nil, err
	}
	return m.directoryLocked(height)
}

// Directory returns the directory at height, loading it from the store if
// it was pruned from memory.
func (m *Manager) Directory(height uint64) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.directoryLocked(height)
}

// DirectoryByKey scans every known height for the directory whose group
// key equals key, loading each from the store in turn if needed. Used to
// resolve a lift's operator key back to the NOIST directory it was issued
// against, which need not be the currently active one.
func (m *Manager) DirectoryByKey(key crypto.Point) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dir := range m.directories {
		if gk, ok := dir.GroupKey(); ok && gk.Equal(key) {
			return dir, nil
		}
	}

	heights, err := m.store.Heights()
	if err != nil {
		return nil, err
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })
	for _, h := range heights {
		dir, err := m.directoryLocked(h)
		if err != nil {
			continue
		}
		if gk, ok := dir.GroupKey(); ok && gk.Equal(key) {
			return dir, nil
		}
	}
	return nil, ErrDirectoryNotFound
}

// HasDirectory reports whether any known height's group key equals key.
// Implements session.DirectoryLookup.
func (m *Manager) HasDirectory(key crypto.Point) bool {
	_, err := m.DirectoryByKey(key)
	return err == nil
}

func (m *Manager) directoryLocked(height uint64) (*Directory, error) {
	if dir, ok := m.directories[height]; ok {
		return dir, nil
	}

	signatories, setup, found, err := m.store.LoadSetup(height)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDirectoryNotFound
	}

	dir := NewDirectory(height, signatories, setup)
	m.directories[height] = dir
	m.prune()
	return dir, nil
}

func (m *Manager) activeHeightLocked() (uint64, error) {
	var best uint64
	found := false
	for h := range m.directories {
		if !found || h > best {
			best = h
			found = true
		}
	}
	if found {
		return best, nil
	}

	heights, err := m.store.Heights()
	if err != nil {
		return 0, err
	}
	if len(heights) == 0 {
		return 0, ErrDirectoryNotFound
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })
	return heights[0], nil
}

// prune evicts every resident directory beyond the hotDirectories most
// recent heights. Evicted directories remain fully recoverable from the
// setup store — pruning only bounds memory, never durability.
func (m *Manager) prune() {
	if len(m.directories) <= hotDirectories {
		return
	}
	heights := make([]uint64, 0, len(m.directories))
	for h := range m.directories {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })

	for _, h := range heights[hotDirectories:] {
		delete(m.directories, h)
		m.log.Debugw("pruned DKG directory from memory", "height", h)
	}
}

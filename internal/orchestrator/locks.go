package orchestrator

import (
	"sort"
	"sync"
)

// ArtifactLocks provides per-path mutual exclusion for agents that write
// build artifacts. Agents in the same batch may declare overlapping output
// paths (bundle and build both write the output directory); a keyed mutex
// per path serializes them without serializing the rest of the batch.
type ArtifactLocks struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-path mutexes
}

// NewArtifactLocks creates an empty lock manager.
func NewArtifactLocks() *ArtifactLocks {
	return &ArtifactLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for one artifact path, creating it on first use.
func (l *ArtifactLocks) Lock(path string) {
	l.mu.Lock()
	pathLock, exists := l.locks[path]
	if !exists {
		pathLock = &sync.Mutex{}
		l.locks[path] = pathLock
	}
	l.mu.Unlock()

	// Acquired outside the manager lock to avoid contention.
	pathLock.Lock()
}

// Unlock releases the mutex for one artifact path.
func (l *ArtifactLocks) Unlock(path string) {
	l.mu.Lock()
	pathLock, exists := l.locks[path]
	l.mu.Unlock()

	if exists {
		pathLock.Unlock()
	}
}

// LockAll acquires locks for all given paths in sorted order. Sorting before
// acquiring is what prevents deadlocks between agents with overlapping sets.
func (l *ArtifactLocks) LockAll(paths []string) {
	if len(paths) == 0 {
		return
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	for _, path := range sorted {
		l.Lock(path)
	}
}

// UnlockAll releases locks for all given paths, in reverse sorted order for
// symmetry with LockAll.
func (l *ArtifactLocks) UnlockAll(paths []string) {
	if len(paths) == 0 {
		return
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	for i := len(sorted) - 1; i >= 0; i-- {
		l.Unlock(sorted[i])
	}
}

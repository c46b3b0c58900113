package history

import (
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/uuid"
)

// Snapshot is the full observable state at a step boundary: the tree and
// the selection that went with it.
type Snapshot struct {
	Doc          *doc.Node
	Selection    doc.Range
	HasSelection bool
}

type SnapshotRef string

type snapshotEntry struct {
	snapshot Snapshot
	refs     int
}

// SnapshotStore shares snapshots between neighbouring steps: the After of
// one step is the Before of the next. Entries are dropped when the last
// reference is released.
type SnapshotStore struct {
	entries map[SnapshotRef]*snapshotEntry
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{entries: make(map[SnapshotRef]*snapshotEntry)}
}

// Put stores s with one reference held by the caller.
func (s *SnapshotStore) Put(snapshot Snapshot) SnapshotRef {
	ref := SnapshotRef(uuid.NewString())
	s.entries[ref] = &snapshotEntry{snapshot: snapshot, refs: 1}
	return ref
}

func (s *SnapshotStore) Retain(ref SnapshotRef) {
	if e, ok := s.entries[ref]; ok {
		e.refs++
	}
}

func (s *SnapshotStore) Release(ref SnapshotRef) {
	e, ok := s.entries[ref]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, ref)
	}
}

// Get returns the snapshot; the tree must be treated as read-only.
func (s *SnapshotStore) Get(ref SnapshotRef) (Snapshot, bool) {
	e, ok := s.entries[ref]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot, true
}

func (s *SnapshotStore) Len() int {
	return len(s.entries)
}

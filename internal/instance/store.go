package instance

import "sort"

// Store is the ordered list of tracked instances. Single writer: the tracker.
type Store struct {
	list []*Metadata
}

func NewStore() *Store { return &Store{} }

// Add appends m in spawn order.
func (s *Store) Add(m *Metadata) { s.list = append(s.list, m) }

func (s *Store) Len() int { return len(s.list) }

// List returns the tracked metadata in current order. The slice is a copy;
// the metadata is not.
func (s *Store) List() []*Metadata {
	return append([]*Metadata(nil), s.list...)
}

// PrepareForPersist drops entries whose instance is gone, refreshes the
// survivors from the live graph and orders them by (depth, sibling index).
// That order is replayed on load, so parents always precede children.
// Returns the number of pruned entries.
func (s *Store) PrepareForPersist() int {
	kept := s.list[:0]
	for _, m := range s.list {
		if m.Alive() {
			kept = append(kept, m)
		}
	}
	pruned := len(s.list) - len(kept)
	for i := len(kept); i < len(s.list); i++ {
		s.list[i] = nil
	}
	s.list = kept

	for _, m := range s.list {
		m.UpdateInstancedData()
	}
	sort.SliceStable(s.list, func(i, j int) bool {
		a, b := s.list[i], s.list[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.SiblingIndex < b.SiblingIndex
	})
	return pruned
}

// Records snapshots the current list in order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.list))
	for i, m := range s.list {
		out[i] = ToRecord(m)
	}
	return out
}

// Replace swaps the whole contents for loaded metadata. Live references are
// cleared; the respawn pass sets them.
func (s *Store) Replace(ms []*Metadata) {
	s.list = make([]*Metadata, len(ms))
	for i, m := range ms {
		m.Instance = nil
		s.list[i] = m
	}
}

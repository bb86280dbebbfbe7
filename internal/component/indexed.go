package component

import (
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
	"go.uber.org/zap"
)

// Marker is a named navigation point. Awake markers are reachable by
// identity through the shared marker index.
type Marker struct {
	scene.Base
	ID         identity.Identity
	index      *identity.Index[*Marker]
	registered bool
}

func NewMarker(id identity.Identity, index *identity.Index[*Marker]) *Marker {
	return &Marker{ID: id, index: index}
}

func (m *Marker) Kind() scene.Kind { return KindMarker }

func (m *Marker) Clone() scene.Component {
	return &Marker{ID: m.ID, index: m.index}
}

func (m *Marker) Awake() {
	m.registered = m.index.Register(m.ID, m) == nil
}

func (m *Marker) OnDestroy() {
	if m.registered {
		m.index.Unregister(m.ID, m)
		m.registered = false
	}
}

func (m *Marker) PersistentIdentity() identity.Identity { return m.ID }

// SetPersistentIdentity swaps the marker's index key in one step when the
// marker is registered.
func (m *Marker) SetPersistentIdentity(id identity.Identity) error {
	if m.registered {
		if err := m.index.Rekey(m.ID, id, m); err != nil {
			return err
		}
	}
	m.ID = id
	return nil
}

// InstanceGUID gives an object a persistent instance identity. Awake
// instance guids form the anchor index used to reparent respawned objects.
type InstanceGUID struct {
	scene.Base
	GUID       identity.Identity
	index      *identity.Index[*InstanceGUID]
	registered bool
}

func NewInstanceGUID(id identity.Identity, index *identity.Index[*InstanceGUID]) *InstanceGUID {
	return &InstanceGUID{GUID: id, index: index}
}

func (g *InstanceGUID) Kind() scene.Kind { return KindInstanceGUID }

func (g *InstanceGUID) Clone() scene.Component {
	return &InstanceGUID{GUID: g.GUID, index: g.index}
}

func (g *InstanceGUID) Awake() {
	g.registered = g.index.Register(g.GUID, g) == nil
}

func (g *InstanceGUID) OnDestroy() {
	if g.registered {
		g.index.Unregister(g.GUID, g)
		g.registered = false
	}
}

func (g *InstanceGUID) PersistentIdentity() identity.Identity { return g.GUID }

func (g *InstanceGUID) SetPersistentIdentity(id identity.Identity) error {
	if g.registered {
		if err := g.index.Rekey(g.GUID, id, g); err != nil {
			return err
		}
	}
	g.GUID = id
	return nil
}

// Indexes bundles the shared name-keyed tables. One instance per process,
// passed to whatever builds or remaps components.
type Indexes struct {
	Markers *identity.Index[*Marker]
	Anchors *identity.Index[*InstanceGUID]
}

func NewIndexes(log *zap.Logger) *Indexes {
	return &Indexes{
		Markers: identity.NewIndex[*Marker]("marker", log),
		Anchors: identity.NewIndex[*InstanceGUID]("anchor", log),
	}
}

// Occupancy lists the indexes a freshly minted identity must not collide with.
func (ix *Indexes) Occupancy() []identity.Occupancy {
	return []identity.Occupancy{ix.Markers, ix.Anchors}
}

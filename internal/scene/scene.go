package scene

import (
	"strings"

	"github.com/l1jgo/saveable/internal/core/ecs"
)

// Scene owns the live object graph. Object handles are generational entity
// ids so a stale *Object can always tell that it has been destroyed.
// Single-goroutine access only (game loop).
type Scene struct {
	guid    string
	name    string
	world   *ecs.World
	objects *ecs.PtrComponentStore[Object]
	roots   []*Object
}

// New creates an empty scene. guid is the stable scene identifier written into
// every record spawned in it.
func New(guid, name string) *Scene {
	w := ecs.NewWorld()
	objects := ecs.NewPtrComponentStore[Object]()
	w.Registry().Register(objects)
	return &Scene{
		guid:    guid,
		name:    name,
		world:   w,
		objects: objects,
	}
}

func (s *Scene) GUID() string      { return s.guid }
func (s *Scene) Name() string      { return s.name }
func (s *Scene) World() *ecs.World { return s.world }
func (s *Scene) Roots() []*Object  { return s.roots }
func (s *Scene) Len() int          { return s.objects.Len() }

// Lookup resolves a live object by entity id.
func (s *Scene) Lookup(id ecs.EntityID) (*Object, bool) {
	if !s.world.Alive(id) {
		return nil, false
	}
	return s.objects.Get(id)
}

// Add adopts a detached hierarchy into the scene under parent (nil = root).
// The hierarchy keeps its local transforms. Components are awoken if the
// hierarchy ends up active.
func (s *Scene) Add(o *Object, parent *Object) *Object {
	o.Walk(func(n *Object) {
		n.scene = s
		n.id = s.world.CreateEntity()
		s.objects.Set(n.id, n)
	})
	o.parent = parent
	if parent != nil {
		parent.children = append(parent.children, o)
	} else {
		s.roots = append(s.roots, o)
	}
	o.markDirty()
	if o.ActiveInHierarchy() {
		o.awaken()
	}
	return o
}

// Instantiate copies template into the scene at a world position/rotation,
// under parent (nil = root).
func (s *Scene) Instantiate(template *Object, parent *Object, pos Vec3, rot Quat) *Object {
	c := template.Clone()
	wasActive := c.activeSelf
	c.activeSelf = false
	s.Add(c, parent)
	c.SetPosition(pos)
	c.SetRotation(rot)
	c.SetActive(wasActive)
	return c
}

// Destroy removes o and its subtree from the graph immediately and queues
// their entities for release at the next Flush. Awoken components receive
// OnDestroy.
func (s *Scene) Destroy(o *Object) {
	if o == nil || o.scene != s || o.destroyed {
		return
	}
	o.detach()
	o.Walk(func(n *Object) {
		if n.awake {
			for _, c := range n.components {
				if d, ok := c.(Destroyer); ok {
					d.OnDestroy()
				}
			}
		}
		n.destroyed = true
		s.world.MarkForDestruction(n.id)
	})
}

// Flush releases the entities of destroyed objects.
func (s *Scene) Flush() int {
	n := s.world.Pending()
	s.world.FlushDestroyQueue()
	return n
}

// Find resolves an absolute name path ("Level/Room/Shelf") from the roots.
func (s *Scene) Find(path string) *Object {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil
	}
	for _, r := range s.roots {
		if r.name != parts[0] {
			continue
		}
		if found := r.Find(strings.Join(parts[1:], "/")); found != nil {
			return found
		}
	}
	return nil
}

// SyncTransforms recomputes every stale world-transform cache and returns the
// number of objects refreshed.
func (s *Scene) SyncTransforms() int {
	n := 0
	for _, r := range s.roots {
		r.Walk(func(o *Object) {
			if o.dirty {
				o.refresh()
				n++
			}
		})
	}
	return n
}

package scene

import (
	"strings"

	"github.com/l1jgo/saveable/internal/core/ecs"
	"golang.org/x/text/unicode/norm"
)

// Object is a node of the scene graph. Templates are detached Objects (no
// scene, zero entity id); live objects are owned by exactly one Scene.
// Accessed only from the owning goroutine, except that a detached template may
// be read concurrently by an in-flight InstantiateAsync.
type Object struct {
	id    ecs.EntityID
	scene *Scene

	name       string
	activeSelf bool
	awake      bool
	destroyed  bool

	parent     *Object
	children   []*Object
	components []Component

	localPos Vec3
	localRot Quat
	worldPos Vec3
	worldRot Quat
	dirty    bool
}

// NewObject creates a detached, active object at the origin.
func NewObject(name string) *Object {
	return &Object{
		name:       normalizeName(name),
		activeSelf: true,
		localRot:   QuatIdentity(),
		dirty:      true,
	}
}

// normalizeName keeps name paths comparable regardless of how a name was
// typed or decoded.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func (o *Object) ID() ecs.EntityID { return o.id }
func (o *Object) Scene() *Scene    { return o.scene }
func (o *Object) Name() string     { return o.name }

func (o *Object) SetName(name string) { o.name = normalizeName(name) }

// Alive reports whether o is a live scene object that has not been destroyed.
func (o *Object) Alive() bool {
	return o != nil && o.scene != nil && !o.destroyed && o.scene.world.Alive(o.id)
}

func (o *Object) ActiveSelf() bool { return o.activeSelf }

// ActiveInHierarchy is true when o and all its ancestors are active.
func (o *Object) ActiveInHierarchy() bool {
	for cur := o; cur != nil; cur = cur.parent {
		if !cur.activeSelf {
			return false
		}
	}
	return true
}

// SetActive changes o's own active flag. Activating an object inside a scene
// awakens every component in the newly active part of its subtree.
func (o *Object) SetActive(active bool) {
	if o.activeSelf == active {
		return
	}
	o.activeSelf = active
	if active && o.scene != nil && o.ActiveInHierarchy() {
		o.awaken()
	}
}

func (o *Object) awaken() {
	if !o.activeSelf {
		return
	}
	if !o.awake {
		o.awake = true
		for _, c := range o.components {
			if a, ok := c.(Awaker); ok {
				a.Awake()
			}
		}
	}
	for _, ch := range o.children {
		ch.awaken()
	}
}

func (o *Object) Parent() *Object { return o.parent }

// Children returns the live child slice; callers must not modify it.
func (o *Object) Children() []*Object { return o.children }

func (o *Object) Components() []Component { return o.components }

// AddComponent attaches c to o. If o is already awake, c is awoken at once.
func (o *Object) AddComponent(c Component) Component {
	c.bind(o)
	o.components = append(o.components, c)
	if o.awake {
		if a, ok := c.(Awaker); ok {
			a.Awake()
		}
	}
	return c
}

// AddChild attaches a detached child to a detached object. Used when building
// templates; live objects use SetParent.
func (o *Object) AddChild(child *Object) *Object {
	child.parent = o
	o.children = append(o.children, child)
	child.markDirty()
	return child
}

// SiblingIndex is o's position among its parent's children, or among the
// scene roots for a root object.
func (o *Object) SiblingIndex() int {
	var list []*Object
	switch {
	case o.parent != nil:
		list = o.parent.children
	case o.scene != nil:
		list = o.scene.roots
	}
	for i, s := range list {
		if s == o {
			return i
		}
	}
	return 0
}

// Depth counts parent hops up to the scene root.
func (o *Object) Depth() int {
	d := 0
	for cur := o.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

// Walk visits o and every descendant depth-first, inactive ones included.
func (o *Object) Walk(fn func(*Object)) {
	fn(o)
	for _, ch := range o.children {
		ch.Walk(fn)
	}
}

// Path is the "/"-joined name path from the root down to o.
func (o *Object) Path() string {
	var names []string
	for cur := o; cur != nil; cur = cur.parent {
		names = append(names, cur.name)
	}
	reverse(names)
	return strings.Join(names, "/")
}

// Find resolves a "/"-separated path of child names relative to o.
// The empty path resolves to o itself.
func (o *Object) Find(path string) *Object {
	cur := o
	for _, part := range splitPath(path) {
		cur = cur.child(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (o *Object) child(name string) *Object {
	for _, ch := range o.children {
		if ch.name == name {
			return ch
		}
	}
	return nil
}

// SetParent moves a live object under parent (nil = scene root), keeping its
// world position and rotation.
func (o *Object) SetParent(parent *Object) {
	if o.parent == parent {
		return
	}
	pos, rot := o.Position(), o.Rotation()
	o.detach()
	o.parent = parent
	if parent != nil {
		parent.children = append(parent.children, o)
	} else if o.scene != nil {
		o.scene.roots = append(o.scene.roots, o)
	}
	o.SetPosition(pos)
	o.SetRotation(rot)
	if o.scene != nil && o.ActiveInHierarchy() {
		o.awaken()
	}
}

func (o *Object) detach() {
	if o.parent != nil {
		o.parent.children = remove(o.parent.children, o)
		o.parent = nil
		return
	}
	if o.scene != nil {
		o.scene.roots = remove(o.scene.roots, o)
	}
}

// Clone deep-copies o and its subtree into a new detached hierarchy.
// Components are cloned; lifecycle state is not.
func (o *Object) Clone() *Object {
	c := &Object{
		name:       o.name,
		activeSelf: o.activeSelf,
		localPos:   o.localPos,
		localRot:   o.localRot,
		dirty:      true,
	}
	for _, comp := range o.components {
		cc := comp.Clone()
		cc.bind(c)
		c.components = append(c.components, cc)
	}
	for _, ch := range o.children {
		cc := ch.Clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for i := range parts {
		parts[i] = normalizeName(parts[i])
	}
	return parts
}

func remove(list []*Object, o *Object) []*Object {
	for i, s := range list {
		if s == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

package scene

// Kind names a component type. Kinds are the vocabulary used by catalogs and
// by the set of holder kinds the remap engine tracks.
type Kind string

// Component is anything attached to an Object. Concrete types embed Base.
type Component interface {
	Kind() Kind
	Owner() *Object
	// Clone returns an unattached copy carrying the same data.
	Clone() Component
	bind(o *Object)
}

// Base carries the owner back-reference. Embed it in every component.
type Base struct {
	owner *Object
}

func (b *Base) Owner() *Object { return b.owner }
func (b *Base) bind(o *Object) { b.owner = o }

// Awaker is called once, the first time the owner becomes active in a scene.
type Awaker interface {
	Awake()
}

// Destroyer is called when an awoken owner is destroyed.
type Destroyer interface {
	OnDestroy()
}

// GetComponent returns the first component of type T on o.
func GetComponent[T Component](o *Object) (T, bool) {
	for _, c := range o.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Package instance holds the structural record kept for every tracked
// runtime instance, its persisted form, and the ordered store that owns them.
package instance

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
)

// Variant discriminates how a record's template reference is resolved.
type Variant string

const (
	// VariantInstance references a template by catalog guid.
	VariantInstance Variant = "instance"
	// VariantItemInstance references an item id; the template is the item's.
	VariantItemInstance Variant = "item-instance"
)

// Metadata is what it takes to rebuild one spawned instance.
type Metadata struct {
	Variant      Variant
	TemplateRef  string
	SceneID      string
	Parent       ParentDescription
	Depth        int
	SiblingIndex int
	Position     scene.Vec3
	Rotation     scene.Quat
	DisplayName  string
	SaveIDMaps   []identity.SaveIDMap

	// Instance is the live object. Never persisted; nil for freshly loaded
	// records until the respawn pass fills it in.
	Instance *scene.Object
}

// NewInstance builds metadata for a copy of a catalog template. The template
// reference comes from the copy's template_guid component.
func NewInstance(obj *scene.Object, maps []identity.SaveIDMap) (*Metadata, error) {
	tg, ok := scene.GetComponent[*component.TemplateGUID](obj)
	if !ok || tg.GUID.IsZero() {
		return nil, fmt.Errorf("%w: %q carries no template guid", report.ErrResolution, obj.Path())
	}
	return newMetadata(VariantInstance, tg.GUID.String(), obj, maps), nil
}

// NewItemInstance builds metadata for an object spawned from an item; the
// item id stands in for the template reference.
func NewItemInstance(itemID string, obj *scene.Object, maps []identity.SaveIDMap) *Metadata {
	return newMetadata(VariantItemInstance, itemID, obj, maps)
}

func newMetadata(v Variant, ref string, obj *scene.Object, maps []identity.SaveIDMap) *Metadata {
	m := &Metadata{
		Variant:     v,
		TemplateRef: ref,
		SaveIDMaps:  append([]identity.SaveIDMap(nil), maps...),
		Instance:    obj,
	}
	m.UpdateInstancedData()
	return m
}

// Alive reports whether the live instance still exists.
func (m *Metadata) Alive() bool { return m.Instance.Alive() }

// UpdateInstancedData recomputes the structural fields from the live
// transform graph. No-op without a live instance.
func (m *Metadata) UpdateInstancedData() {
	o := m.Instance
	if !o.Alive() {
		return
	}
	m.SceneID = o.Scene().GUID()
	m.Position = o.Position()
	m.Rotation = o.Rotation()
	m.DisplayName = o.Name()
	m.Parent = DescribeParent(o)
	m.Depth = o.Depth()
	m.SiblingIndex = o.SiblingIndex()
}

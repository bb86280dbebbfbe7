package instance

import (
	"encoding/json"
	"testing"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ix    *component.Indexes
	scene *scene.Scene
	room  *scene.Object
	shelf *scene.Object
}

// newFixture builds Level/Room(anchor)/Shelf.
func newFixture() fixture {
	ix := component.NewIndexes(zap.NewNop())
	s := scene.New("scene-guid", "Test")
	level := s.Add(scene.NewObject("Level"), nil)
	room := scene.NewObject("Room")
	room.AddComponent(component.NewInstanceGUID(identity.New("room-1"), ix.Anchors))
	room.AddChild(scene.NewObject("Shelf"))
	s.Add(room, level)
	return fixture{ix: ix, scene: s, room: room, shelf: room.Find("Shelf")}
}

func chest() *scene.Object {
	o := scene.NewObject("Chest")
	o.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-chest")})
	return o
}

func TestDescribeParent(t *testing.T) {
	f := newFixture()

	onShelf := f.scene.Instantiate(chest(), f.shelf, scene.V3(1, 2, 3), scene.QuatIdentity())
	d := DescribeParent(onShelf)
	require.True(t, d.Anchored)
	require.Equal(t, identity.New("room-1").Hash(), d.AnchorHash)
	require.Equal(t, "Shelf", d.Path)

	inRoom := f.scene.Instantiate(chest(), f.room, scene.V3(0, 0, 0), scene.QuatIdentity())
	d = DescribeParent(inRoom)
	require.True(t, d.Anchored)
	require.Empty(t, d.Path)

	inLevel := f.scene.Instantiate(chest(), f.scene.Find("Level"), scene.V3(0, 0, 0), scene.QuatIdentity())
	d = DescribeParent(inLevel)
	require.False(t, d.Anchored)
	require.Equal(t, "Level", d.Path)

	root := f.scene.Instantiate(chest(), nil, scene.V3(0, 0, 0), scene.QuatIdentity())
	require.True(t, DescribeParent(root).IsRoot())
}

func TestNewInstance(t *testing.T) {
	f := newFixture()
	obj := f.scene.Instantiate(chest(), f.shelf, scene.V3(4, 5, 6), scene.QuatIdentity())
	maps := []identity.SaveIDMap{{Original: identity.New("A1"), Remapped: identity.New("B1")}}

	m, err := NewInstance(obj, maps)
	require.NoError(t, err)
	require.Equal(t, VariantInstance, m.Variant)
	require.Equal(t, "tpl-chest", m.TemplateRef)
	require.Equal(t, "scene-guid", m.SceneID)
	require.Equal(t, 3, m.Depth)
	require.Equal(t, "Chest", m.DisplayName)
	require.InDelta(t, 4, m.Position.X, 1e-5)
	require.True(t, m.Alive())

	_, err = NewInstance(f.scene.Add(scene.NewObject("Plain"), nil), nil)
	require.ErrorIs(t, err, report.ErrResolution)

	item := NewItemInstance("potion", f.scene.Add(scene.NewObject("Potion"), nil), nil)
	require.Equal(t, VariantItemInstance, item.Variant)
	require.Equal(t, "potion", item.TemplateRef)
}

func TestRecord_AnchorHashOnlyWhenAnchored(t *testing.T) {
	f := newFixture()
	anchored, err := NewInstance(f.scene.Instantiate(chest(), f.shelf, scene.V3(0, 0, 0), scene.QuatIdentity()), nil)
	require.NoError(t, err)
	absolute, err := NewInstance(f.scene.Instantiate(chest(), nil, scene.V3(0, 0, 0), scene.QuatIdentity()), nil)
	require.NoError(t, err)

	data, err := Encode([]Record{ToRecord(anchored), ToRecord(absolute)})
	require.NoError(t, err)
	records, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].ParentDescription.AnchorHash)
	require.Nil(t, records[1].ParentDescription.AnchorHash)

	var raw []struct {
		Parent map[string]any `json:"parentDescription"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw[0].Parent, "anchorHash")
	require.NotContains(t, raw[1].Parent, "anchorHash")

	back, rep := FromRecords(records)
	require.True(t, rep.Empty())
	require.Equal(t, anchored.Parent, back[0].Parent)
	require.Nil(t, back[0].Instance)
}

func TestFromRecords_UnknownVariantDropped(t *testing.T) {
	ms, rep := FromRecords([]Record{
		{Variant: VariantInstance, TemplateReference: "a"},
		{Variant: "vehicle", TemplateReference: "b"},
	})
	require.Len(t, ms, 1)
	require.Equal(t, 1, rep.Count(report.ErrUnknownVariant))
}

func TestStore_PrepareForPersist(t *testing.T) {
	f := newFixture()
	st := NewStore()
	add := func(parent *scene.Object) *Metadata {
		m, err := NewInstance(f.scene.Instantiate(chest(), parent, scene.V3(0, 0, 0), scene.QuatIdentity()), nil)
		require.NoError(t, err)
		st.Add(m)
		return m
	}
	deep := add(f.shelf)
	gone := add(nil)
	rootA := add(nil)
	mid := add(f.room)
	rootB := add(nil)

	f.scene.Destroy(gone.Instance)
	require.Equal(t, 1, st.PrepareForPersist())
	require.Equal(t, []*Metadata{rootA, rootB, mid, deep}, st.List())
	require.Less(t, rootA.SiblingIndex, rootB.SiblingIndex)

	first, err := Encode(st.Records())
	require.NoError(t, err)
	require.Zero(t, st.PrepareForPersist())
	second, err := Encode(st.Records())
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestStore_ReplaceClearsLiveReferences(t *testing.T) {
	f := newFixture()
	m, err := NewInstance(f.scene.Instantiate(chest(), nil, scene.V3(0, 0, 0), scene.QuatIdentity()), nil)
	require.NoError(t, err)

	st := NewStore()
	st.Replace([]*Metadata{m})
	require.Equal(t, 1, st.Len())
	require.Nil(t, st.List()[0].Instance)
}

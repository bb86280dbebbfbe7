package tracker

import (
	"context"
	"sort"
	"testing"

	"github.com/l1jgo/saveable/internal/catalog"
	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/core/event"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/remap"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/respawn"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/l1jgo/saveable/internal/transport"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type itemResolver map[string]*scene.Object

func (r itemResolver) TryResolve(id string) (*scene.Object, bool) {
	o, ok := r[id]
	return o, ok
}

// session is one process lifetime: its own indexes, scene and templates.
type session struct {
	ix        *component.Indexes
	scene     *scene.Scene
	templates *catalog.TemplateCatalog
	bus       *event.Bus
	tracker   *Tracker
}

func newSession(gen identity.Generator) *session {
	ix := component.NewIndexes(zap.NewNop())
	sc := scene.New("scene-1", "Test")
	sc.Add(scene.NewObject("Level"), nil)

	chest := scene.NewObject("Chest")
	chest.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-chest")})
	chest.AddComponent(component.NewInstanceGUID(identity.New("chest-guid"), ix.Anchors))
	lid := chest.AddChild(scene.NewObject("Lid"))
	lid.AddComponent(component.NewMarker(identity.New("chest-lid"), ix.Markers))

	sign := scene.NewObject("Sign")
	sign.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-sign")})
	board := sign.AddChild(scene.NewObject("Board"))
	board.AddComponent(component.NewMarker(identity.New("A1"), ix.Markers))

	lamp := scene.NewObject("Lamp")
	lamp.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-lamp")})
	lamp.AddComponent(&component.LocalVariables{SaveID: identity.New("lamp-vars")})

	potion := scene.NewObject("Potion")
	potion.AddComponent(&component.Remember{SaveID: identity.New("potion-1")})

	templates := catalog.NewTemplateCatalog(zap.NewNop(), chest, lamp, sign)
	items := itemResolver{"potion-red": potion}
	engine := remap.NewEngine(gen, zap.NewNop(), ix.Occupancy()...)
	sched := respawn.NewScheduler(sc, templates, items, ix.Anchors, engine, zap.NewNop(), 0)
	bus := event.NewBus()
	kinds := remap.NewKindSet(component.HolderKinds()...)

	return &session{
		ix:        ix,
		scene:     sc,
		templates: templates,
		bus:       bus,
		tracker:   New(sc, engine, kinds, sched, items, bus, zap.NewNop()),
	}
}

func (s *session) template(t *testing.T, guid string) *scene.Object {
	t.Helper()
	tpl, ok := s.templates.TryResolve(guid)
	require.True(t, ok)
	return tpl
}

func (s *session) spawn(t *testing.T, guid string, parent *scene.Object, pos scene.Vec3) *scene.Object {
	t.Helper()
	obj, rep, err := s.tracker.Instantiate(s.template(t, guid), parent, pos, scene.QuatIdentity())
	require.NoError(t, err)
	require.True(t, rep.Empty(), rep.Err())
	return obj
}

func (s *session) save(t *testing.T) []byte {
	t.Helper()
	data, _, err := s.tracker.Capture(context.Background())
	require.NoError(t, err)
	return data
}

func TestTracker_RemappedIdentitySurvivesReload(t *testing.T) {
	first := newSession(identity.NewSequence("B"))
	sign := first.spawn(t, "tpl-sign", nil, scene.V3(1, 0, 1))

	m, ok := scene.GetComponent[*component.Marker](sign.Find("Board"))
	require.True(t, ok)
	require.Equal(t, "B1", m.ID.String())
	require.True(t, first.ix.Markers.Has(identity.New("B1")))
	require.False(t, first.ix.Markers.Has(identity.New("A1")))

	tpl := first.template(t, "tpl-sign")
	tm, _ := scene.GetComponent[*component.Marker](tpl.Find("Board"))
	require.Equal(t, "A1", tm.ID.String())
	require.True(t, tpl.ActiveSelf())

	data := first.save(t)

	second := newSession(identity.UUIDGenerator{})
	rep, err := second.tracker.Restore(context.Background(), data)
	require.NoError(t, err)
	require.True(t, rep.Empty(), rep.Err())

	live := second.tracker.Tracked()
	require.Len(t, live, 1)
	m, ok = scene.GetComponent[*component.Marker](live[0].Find("Board"))
	require.True(t, ok)
	require.Equal(t, "B1", m.ID.String())
	require.True(t, second.ix.Markers.Has(identity.New("B1")))
	require.False(t, second.ix.Markers.Has(identity.New("A1")))
	require.InDelta(t, 1, live[0].Position().X, 1e-5)
}

func templateRefs(t *testing.T, tr *Tracker) []string {
	t.Helper()
	var refs []string
	for _, r := range tr.GetSaveData() {
		refs = append(refs, string(r.Variant)+":"+r.TemplateReference)
	}
	sort.Strings(refs)
	return refs
}

func TestTracker_PersistReloadKeepsTemplateMultiset(t *testing.T) {
	first := newSession(identity.UUIDGenerator{})
	level := first.scene.Find("Level")
	c1 := first.spawn(t, "tpl-chest", nil, scene.V3(0, 0, 0))
	first.spawn(t, "tpl-chest", level, scene.V3(2, 0, 0))
	first.spawn(t, "tpl-lamp", c1, scene.V3(0, 1, 0))
	first.spawn(t, "tpl-lamp", c1.Find("Lid"), scene.V3(0, 2, 0))
	first.spawn(t, "tpl-lamp", nil, scene.V3(5, 0, 0))
	_, _, err := first.tracker.InstantiateItem("potion-red", level, scene.V3(3, 0, 0), scene.QuatIdentity())
	require.NoError(t, err)
	require.Equal(t, 6, first.tracker.Len())

	want := templateRefs(t, first.tracker)
	data := first.save(t)

	second := newSession(identity.UUIDGenerator{})
	rep, err := second.tracker.Restore(context.Background(), data)
	require.NoError(t, err)
	require.True(t, rep.Empty(), rep.Err())
	require.Len(t, second.tracker.Tracked(), 6)
	require.Equal(t, want, templateRefs(t, second.tracker))

	lampsInChest := 0
	for _, o := range second.tracker.Tracked() {
		if o.Name() == "Lamp" && o.Parent() != nil && o.Parent().Name() != "Level" {
			lampsInChest++
			require.Contains(t, []string{"Chest", "Lid"}, o.Parent().Name())
		}
	}
	require.Equal(t, 2, lampsInChest)
}

func TestTracker_SaveDataIsIdempotent(t *testing.T) {
	s := newSession(identity.UUIDGenerator{})
	c := s.spawn(t, "tpl-chest", nil, scene.V3(0, 0, 0))
	s.spawn(t, "tpl-lamp", c, scene.V3(0, 1, 0))
	s.spawn(t, "tpl-lamp", nil, scene.V3(1, 1, 0))

	require.Equal(t, string(s.save(t)), string(s.save(t)))
}

func TestTracker_LoadReplacesLiveInstances(t *testing.T) {
	s := newSession(identity.UUIDGenerator{})
	s.spawn(t, "tpl-chest", nil, scene.V3(0, 0, 0))
	s.spawn(t, "tpl-chest", nil, scene.V3(1, 0, 0))
	data := s.save(t)
	extra := s.spawn(t, "tpl-lamp", nil, scene.V3(2, 0, 0))

	rep, err := s.tracker.Restore(context.Background(), data)
	require.NoError(t, err)
	require.Zero(t, rep.Count(report.ErrIdentityCollision))
	require.True(t, rep.Empty(), rep.Err())
	require.False(t, extra.Alive())
	require.Len(t, s.tracker.Tracked(), 2)
	require.Len(t, s.scene.Roots(), 3)
	require.Equal(t, 2, s.ix.Markers.Len())
}

func TestTracker_SpawnErrors(t *testing.T) {
	s := newSession(identity.UUIDGenerator{})
	roots := len(s.scene.Roots())

	_, _, err := s.tracker.Instantiate(scene.NewObject("Loose"), nil, scene.V3(0, 0, 0), scene.QuatIdentity())
	require.ErrorIs(t, err, report.ErrResolution)
	_, _, err = s.tracker.InstantiateItem("potion-blue", nil, scene.V3(0, 0, 0), scene.QuatIdentity())
	require.ErrorIs(t, err, report.ErrResolution)

	require.Len(t, s.scene.Roots(), roots)
	require.Zero(t, s.tracker.Len())
}

func TestTracker_PrunesDestroyedOnSave(t *testing.T) {
	s := newSession(identity.UUIDGenerator{})
	keep := s.spawn(t, "tpl-lamp", nil, scene.V3(0, 0, 0))
	gone := s.spawn(t, "tpl-lamp", nil, scene.V3(1, 0, 0))
	s.scene.Destroy(gone)

	records := s.tracker.GetSaveData()
	require.Len(t, records, 1)
	require.Equal(t, 1, s.tracker.Len())
	require.Same(t, keep, s.tracker.Tracked()[0])
}

func TestTracker_EmitsEvents(t *testing.T) {
	s := newSession(identity.UUIDGenerator{})
	var tracked []event.InstanceTracked
	var respawned []event.RespawnCompleted
	event.Subscribe(s.bus, func(e event.InstanceTracked) { tracked = append(tracked, e) })
	event.Subscribe(s.bus, func(e event.RespawnCompleted) { respawned = append(respawned, e) })

	obj := s.spawn(t, "tpl-chest", nil, scene.V3(0, 0, 0))
	_, err := s.tracker.Restore(context.Background(), s.save(t))
	require.NoError(t, err)

	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	require.Len(t, tracked, 1)
	require.Equal(t, obj.ID(), tracked[0].Entity)
	require.Equal(t, "tpl-chest", tracked[0].TemplateRef)
	require.Len(t, respawned, 1)
	require.Equal(t, 1, respawned[0].Spawned)
	require.Equal(t, "scene-1", respawned[0].SceneID)
}

func TestTracker_AttachToTransport(t *testing.T) {
	dir := t.TempDir()
	storage, err := transport.NewFileStorage(dir)
	require.NoError(t, err)
	tr := transport.New(storage, zap.NewNop())

	s := newSession(identity.UUIDGenerator{})
	require.NoError(t, s.tracker.Attach(tr))
	require.Error(t, s.tracker.Attach(tr))
	s.spawn(t, "tpl-chest", nil, scene.V3(0, 0, 0))

	_, err = tr.Save(context.Background(), "slot1")
	require.NoError(t, err)

	next := newSession(identity.UUIDGenerator{})
	s.tracker.Detach()
	require.NoError(t, next.tracker.Attach(tr))
	_, err = tr.Load(context.Background(), "slot1")
	require.NoError(t, err)
	require.Len(t, next.tracker.Tracked(), 1)
}

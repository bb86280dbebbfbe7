// Package tracker is the single owner of spawn bookkeeping: it spawns
// tracked instances, hands their records to the save transport and rebuilds
// them on load.
package tracker

import (
	"context"
	"fmt"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/core/event"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/instance"
	"github.com/l1jgo/saveable/internal/remap"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/respawn"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/l1jgo/saveable/internal/transport"
	"go.uber.org/zap"
)

// SaveID keys the tracker's entry in a save slot.
const SaveID = "saveable-prefab-system"

// Tracker is used from the game loop goroutine only.
type Tracker struct {
	scene     *scene.Scene
	store     *instance.Store
	remap     *remap.Engine
	kinds     remap.KindSet
	sched     *respawn.Scheduler
	items     respawn.ItemResolver
	bus       *event.Bus
	log       *zap.Logger
	transport *transport.Transport
}

func New(sc *scene.Scene, engine *remap.Engine, kinds remap.KindSet, sched *respawn.Scheduler, items respawn.ItemResolver, bus *event.Bus, log *zap.Logger) *Tracker {
	return &Tracker{
		scene: sc,
		store: instance.NewStore(),
		remap: engine,
		kinds: kinds,
		sched: sched,
		items: items,
		bus:   bus,
		log:   log,
	}
}

// Len is the number of tracked instances, dead ones included until the
// next save prunes them.
func (t *Tracker) Len() int { return t.store.Len() }

// Tracked returns the live tracked instances in store order.
func (t *Tracker) Tracked() []*scene.Object {
	var out []*scene.Object
	for _, m := range t.store.List() {
		if m.Alive() {
			out = append(out, m.Instance)
		}
	}
	return out
}

// Instantiate copies a catalog template into the scene under parent (nil =
// root) at a world position/rotation, gives every state holder in the copy
// a fresh identity and starts tracking it.
func (t *Tracker) Instantiate(template, parent *scene.Object, pos scene.Vec3, rot scene.Quat) (*scene.Object, report.Report, error) {
	tg, ok := scene.GetComponent[*component.TemplateGUID](template)
	if !ok || tg.GUID.IsZero() {
		return nil, report.Report{}, fmt.Errorf("%w: template %q has no guid", report.ErrResolution, template.Name())
	}
	return t.spawn(template, parent, pos, rot, func(obj *scene.Object, maps []identity.SaveIDMap) (*instance.Metadata, error) {
		return instance.NewInstance(obj, maps)
	})
}

// InstantiateItem spawns the world form of an item and tracks it under the
// item id.
func (t *Tracker) InstantiateItem(itemID string, parent *scene.Object, pos scene.Vec3, rot scene.Quat) (*scene.Object, report.Report, error) {
	var tpl *scene.Object
	ok := false
	if t.items != nil {
		tpl, ok = t.items.TryResolve(itemID)
	}
	if !ok {
		return nil, report.Report{}, fmt.Errorf("%w: item %q", report.ErrResolution, itemID)
	}
	return t.spawn(tpl, parent, pos, rot, func(obj *scene.Object, maps []identity.SaveIDMap) (*instance.Metadata, error) {
		return instance.NewItemInstance(itemID, obj, maps), nil
	})
}

// spawn copies tpl while it is deactivated, so no holder on the copy wakes
// up (and registers in an index) under a template identity.
func (t *Tracker) spawn(tpl, parent *scene.Object, pos scene.Vec3, rot scene.Quat,
	track func(*scene.Object, []identity.SaveIDMap) (*instance.Metadata, error)) (*scene.Object, report.Report, error) {
	wasActive := tpl.ActiveSelf()
	tpl.SetActive(false)
	defer tpl.SetActive(wasActive)

	obj := t.scene.Instantiate(tpl, parent, pos, rot)
	maps, rep, err := t.remap.CaptureAndRemap(obj, t.kinds)
	if err != nil {
		t.scene.Destroy(obj)
		return nil, rep, err
	}
	md, err := track(obj, maps)
	if err != nil {
		t.scene.Destroy(obj)
		return nil, rep, err
	}
	obj.SetActive(true)
	t.store.Add(md)

	event.Emit(t.bus, event.InstanceTracked{
		Entity:      obj.ID(),
		Variant:     string(md.Variant),
		TemplateRef: md.TemplateRef,
	})
	t.log.Debug("instance tracked",
		zap.String("template", md.TemplateRef),
		zap.String("object", obj.Path()),
		zap.Int("holders", len(maps)))
	return obj, rep, nil
}

// GetSaveData prunes dead instances, refreshes the rest and returns their
// records in replay order.
func (t *Tracker) GetSaveData() []instance.Record {
	if n := t.store.PrepareForPersist(); n > 0 {
		t.log.Debug("pruned destroyed instances", zap.Int("count", n))
	}
	return t.store.Records()
}

// OnLoad replaces the tracked set with records and rebuilds them in the
// current scene. Live instances tracked before the load are destroyed first.
// Per-record failures are reported; the error is non-nil only when ctx ended
// mid-pass.
func (t *Tracker) OnLoad(ctx context.Context, records []instance.Record) (report.Report, error) {
	ms, rep := instance.FromRecords(records)
	for _, err := range rep.Warnings {
		t.log.Warn("saved record dropped", zap.Error(err))
	}

	destroyed := 0
	for _, m := range t.store.List() {
		if m.Alive() {
			t.scene.Destroy(m.Instance)
			destroyed++
		}
	}
	t.store.Replace(ms)

	res, err := t.sched.Respawn(ctx, ms)
	rep.Merge(res.Report)
	event.Emit(t.bus, event.RespawnCompleted{
		SceneID:  t.scene.GUID(),
		Spawned:  res.Spawned,
		Skipped:  res.Skipped,
		Warnings: rep.Len(),
	})
	t.log.Info("saved instances restored",
		zap.String("scene", t.scene.GUID()),
		zap.Int("replaced", destroyed),
		zap.Int("records", len(records)),
		zap.Int("spawned", res.Spawned),
		zap.Int("other_scenes", res.Skipped),
		zap.Int("warnings", rep.Len()))
	return rep, err
}

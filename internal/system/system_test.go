package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/saveable/internal/catalog"
	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/core/event"
	coresys "github.com/l1jgo/saveable/internal/core/system"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/remap"
	"github.com/l1jgo/saveable/internal/respawn"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/l1jgo/saveable/internal/scripting"
	"github.com/l1jgo/saveable/internal/tracker"
	"github.com/l1jgo/saveable/internal/transport"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tickLua = `
function on_tick(ctx)
  if ctx.tick == 2 then
    return { { type = "instantiate", template = "tpl-barrel", parent = "Level" } }
  end
  return {}
end

function on_respawn(ctx)
  return { { type = "instantiate", template = "tpl-barrel", parent = "Level", x = ctx.spawned } }
end
`

type world struct {
	scene     *scene.Scene
	bus       *event.Bus
	tracker   *tracker.Tracker
	transport *transport.Transport
	storage   *transport.FileStorage
	runner    *coresys.Runner
	autosave  *AutosaveSystem
}

func newWorld(t *testing.T, autosaveTicks int) *world {
	t.Helper()
	ix := component.NewIndexes(zap.NewNop())
	sc := scene.New("scene-1", "Test")
	sc.Add(scene.NewObject("Level"), nil)

	barrel := scene.NewObject("Barrel")
	barrel.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-barrel")})
	barrel.AddComponent(&component.Remember{SaveID: identity.New("barrel-1")})
	templates := catalog.NewTemplateCatalog(zap.NewNop(), barrel)

	bus := event.NewBus()
	engine := remap.NewEngine(identity.UUIDGenerator{}, zap.NewNop(), ix.Occupancy()...)
	sched := respawn.NewScheduler(sc, templates, nil, ix.Anchors, engine, zap.NewNop(), time.Second)
	tr := tracker.New(sc, engine, remap.NewKindSet(component.HolderKinds()...), sched, nil, bus, zap.NewNop())

	storage, err := transport.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	tp := transport.New(storage, zap.NewNop())
	require.NoError(t, tr.Attach(tp))

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "tick.lua"), []byte(tickLua), 0o644))
	lua, err := scripting.NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(lua.Close)
	instr := scripting.NewInstruction(tr, templates, sc, tp, zap.NewNop())

	w := &world{scene: sc, bus: bus, tracker: tr, transport: tp, storage: storage, runner: coresys.NewRunner()}
	w.autosave = NewAutosaveSystem(tp, bus, zap.NewNop(), "auto", autosaveTicks)
	// Registered out of order; the runner sorts by phase.
	w.runner.Register(NewCleanupSystem(sc))
	w.runner.Register(w.autosave)
	w.runner.Register(NewScriptSystem(lua, instr, tr, bus, zap.NewNop()))
	w.runner.Register(NewEventDispatchSystem(bus))
	return w
}

func TestEventDispatchSystem_DeliversNextTick(t *testing.T) {
	bus := event.NewBus()
	var got []string
	event.Subscribe(bus, func(e event.SaveCompleted) { got = append(got, e.Slot) })
	sys := NewEventDispatchSystem(bus)

	event.Emit(bus, event.SaveCompleted{Slot: "a"})
	require.Empty(t, got)
	sys.Update(0)
	require.Equal(t, []string{"a"}, got)
	sys.Update(0)
	require.Equal(t, []string{"a"}, got)
}

func TestCleanupSystem_FlushesDestroyed(t *testing.T) {
	sc := scene.New("scene-1", "Test")
	o := sc.Add(scene.NewObject("Junk"), nil)
	sc.Destroy(o)
	require.Equal(t, 1, sc.World().Pending())

	NewCleanupSystem(sc).Update(0)
	require.Zero(t, sc.World().Pending())
}

func TestScriptSystem_OnTickSpawns(t *testing.T) {
	w := newWorld(t, 0)
	w.runner.Tick(100 * time.Millisecond)
	require.Zero(t, w.tracker.Len())
	w.runner.Tick(100 * time.Millisecond)
	require.Equal(t, 1, w.tracker.Len())
	require.NotNil(t, w.scene.Find("Level/Barrel"))
}

func TestAutosaveSystem_SavesEveryInterval(t *testing.T) {
	w := newWorld(t, 3)
	var saves []event.SaveCompleted
	event.Subscribe(w.bus, func(e event.SaveCompleted) { saves = append(saves, e) })

	w.runner.Tick(0)
	w.runner.Tick(0)
	_, err := w.storage.Read(context.Background(), "auto")
	require.ErrorIs(t, err, transport.ErrSlotEmpty)

	w.runner.Tick(0)
	entries, err := w.storage.Read(context.Background(), "auto")
	require.NoError(t, err)
	require.Contains(t, entries, tracker.SaveID)

	w.runner.Tick(0)
	require.Len(t, saves, 1)
	require.Equal(t, "auto", saves[0].Slot)
	require.NoError(t, saves[0].Err)
}

func TestScriptSystem_OnRespawnAfterLoad(t *testing.T) {
	w := newWorld(t, 0)
	w.runner.Tick(0)
	w.runner.Tick(0)
	require.Equal(t, 1, w.tracker.Len())
	require.NoError(t, w.autosave.SaveNow())

	_, err := w.transport.Load(context.Background(), "auto")
	require.NoError(t, err)
	require.Equal(t, 1, w.tracker.Len())

	// RespawnCompleted is dispatched on the next tick and the hook spawns one more.
	w.runner.Tick(0)
	require.Equal(t, 2, w.tracker.Len())
	w.runner.Tick(0)
	require.Equal(t, 2, w.tracker.Len())
}

package system

import (
	"time"

	"github.com/l1jgo/saveable/internal/core/event"
	coresys "github.com/l1jgo/saveable/internal/core/system"
	"github.com/l1jgo/saveable/internal/scripting"
	"github.com/l1jgo/saveable/internal/tracker"
	"go.uber.org/zap"
)

// ScriptSystem runs the Lua on_tick hook every tick and the on_respawn hook
// after each load. Phase 1 (Update).
type ScriptSystem struct {
	engine  *scripting.Engine
	instr   *scripting.Instruction
	tracker *tracker.Tracker
	log     *zap.Logger
	tick    int
}

func NewScriptSystem(engine *scripting.Engine, instr *scripting.Instruction, tr *tracker.Tracker, bus *event.Bus, log *zap.Logger) *ScriptSystem {
	s := &ScriptSystem{engine: engine, instr: instr, tracker: tr, log: log}
	event.Subscribe(bus, s.onRespawn)
	return s
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.tick++
	cmds := s.engine.OnTick(scripting.TickContext{Tick: s.tick, Tracked: s.tracker.Len()})
	s.run("on_tick", cmds)
}

func (s *ScriptSystem) onRespawn(e event.RespawnCompleted) {
	cmds := s.engine.OnRespawn(scripting.RespawnContext{
		SceneID:  e.SceneID,
		Spawned:  e.Spawned,
		Skipped:  e.Skipped,
		Warnings: e.Warnings,
	})
	s.run("on_respawn", cmds)
}

func (s *ScriptSystem) run(hook string, cmds []scripting.Command) {
	if len(cmds) == 0 {
		return
	}
	done, rep := s.instr.Run(cmds)
	s.log.Debug("script commands executed",
		zap.String("hook", hook),
		zap.Int("done", done),
		zap.Int("failed", rep.Len()))
}

package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running the spawn scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: core/ first, then the optional feature directories.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "world", "item"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Command is one action returned by a Lua hook.
type Command struct {
	Type     string // "instantiate", "instantiate_item", "destroy"
	Template string // template guid for instantiate
	Item     string // item id for instantiate_item
	Parent   string // absolute parent path; empty = scene root
	Target   string // absolute path of the object to destroy
	X, Y, Z  float64
	Yaw      float64 // degrees around +Y
}

// TickContext is the state handed to on_tick.
type TickContext struct {
	Tick    int
	Tracked int
}

// RespawnContext is the state handed to on_respawn.
type RespawnContext struct {
	SceneID  string
	Spawned  int
	Skipped  int
	Warnings int
}

// OnStart calls Lua on_start() once after boot.
func (e *Engine) OnStart(tracked int) []Command {
	t := e.vm.NewTable()
	t.RawSetString("tracked", lua.LNumber(tracked))
	return e.callHook("on_start", t)
}

// OnTick calls Lua on_tick(ctx).
func (e *Engine) OnTick(ctx TickContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("tracked", lua.LNumber(ctx.Tracked))
	return e.callHook("on_tick", t)
}

// OnRespawn calls Lua on_respawn(ctx) after saved instances were rebuilt.
func (e *Engine) OnRespawn(ctx RespawnContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("scene_id", lua.LString(ctx.SceneID))
	t.RawSetString("spawned", lua.LNumber(ctx.Spawned))
	t.RawSetString("skipped", lua.LNumber(ctx.Skipped))
	t.RawSetString("warnings", lua.LNumber(ctx.Warnings))
	return e.callHook("on_respawn", t)
}

// callHook calls a global Lua function with one context table and parses
// the returned command array. Missing hooks return nil.
func (e *Engine) callHook(name string, ctx *lua.LTable) []Command {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}
	var cmds []Command
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, Command{
				Type:     lStr(row, "type"),
				Template: lStr(row, "template"),
				Item:     lStr(row, "item"),
				Parent:   lStr(row, "parent"),
				Target:   lStr(row, "target"),
				X:        lNum(row, "x"),
				Y:        lNum(row, "y"),
				Z:        lNum(row, "z"),
				Yaw:      lNum(row, "yaw"),
			})
		}
	})
	return cmds
}

// lNum reads a number field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

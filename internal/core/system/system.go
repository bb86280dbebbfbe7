package system

import "time"

// Phase orders systems within one tick.
type Phase int

const (
	PhaseEvents  Phase = iota // 0: deliver last tick's events
	PhaseUpdate               // 1: scripts and game logic, spawns happen here
	PhasePersist              // 2: autosave
	PhaseCleanup              // 3: release destroyed objects
)

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

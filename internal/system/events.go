package system

import (
	"time"

	"github.com/l1jgo/saveable/internal/core/event"
	coresys "github.com/l1jgo/saveable/internal/core/system"
)

// EventDispatchSystem makes last tick's events visible and delivers them.
// Phase 0 (Events).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

package system

import (
	"context"
	"time"

	"github.com/l1jgo/saveable/internal/core/event"
	coresys "github.com/l1jgo/saveable/internal/core/system"
	"github.com/l1jgo/saveable/internal/transport"
	"go.uber.org/zap"
)

// AutosaveSystem periodically writes every transport participant to the
// configured slot. Phase 2 (Persist).
type AutosaveSystem struct {
	transport *transport.Transport
	bus       *event.Bus
	log       *zap.Logger
	slot      string
	tickCount int
	interval  int // save every N ticks; 0 disables
}

func NewAutosaveSystem(tr *transport.Transport, bus *event.Bus, log *zap.Logger, slot string, intervalTicks int) *AutosaveSystem {
	return &AutosaveSystem{
		transport: tr,
		bus:       bus,
		log:       log,
		slot:      slot,
		interval:  intervalTicks,
	}
}

func (s *AutosaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *AutosaveSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveNow()
}

// SaveNow saves immediately. Called by the tick and at shutdown.
func (s *AutosaveSystem) SaveNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rep, err := s.transport.Save(ctx, s.slot)
	for _, w := range rep.Warnings {
		s.log.Warn("autosave warning", zap.Error(w))
	}
	if err != nil {
		s.log.Error("autosave failed", zap.String("slot", s.slot), zap.Error(err))
	}
	event.Emit(s.bus, event.SaveCompleted{Slot: s.slot, Warnings: rep.Len(), Err: err})
	return err
}

package system

import (
	"time"

	coresys "github.com/l1jgo/saveable/internal/core/system"
	"github.com/l1jgo/saveable/internal/scene"
)

// CleanupSystem releases the entities of objects destroyed this tick.
// Phase 3 (Cleanup).
type CleanupSystem struct {
	scene *scene.Scene
}

func NewCleanupSystem(sc *scene.Scene) *CleanupSystem {
	return &CleanupSystem{scene: sc}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.scene.Flush()
}

package event

import "github.com/l1jgo/saveable/internal/core/ecs"

// InstanceTracked: a spawn entry point created and registered an instance.
type InstanceTracked struct {
	Entity      ecs.EntityID
	Variant     string
	TemplateRef string
}

// RespawnCompleted: a load pass finished rebuilding saved instances.
type RespawnCompleted struct {
	SceneID  string
	Spawned  int
	Skipped  int
	Warnings int
}

// SaveCompleted: the autosave wrote a slot (Err nil) or failed.
type SaveCompleted struct {
	Slot     string
	Warnings int
	Err      error
}

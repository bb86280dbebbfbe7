package component

import (
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
)

// Character is an actor whose stats and inventory are saved under ID.
type Character struct {
	scene.Base
	ID     identity.Identity
	Player bool
}

func (c *Character) Kind() scene.Kind { return KindCharacter }

func (c *Character) Clone() scene.Component {
	return &Character{ID: c.ID, Player: c.Player}
}

func (c *Character) PersistentIdentity() identity.Identity { return c.ID }

func (c *Character) SetPersistentIdentity(id identity.Identity) error {
	c.ID = id
	return nil
}

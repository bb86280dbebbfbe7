package component

import (
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
)

// Remember saves the state of its object (position, active flag, ...) in
// external save data under SaveID.
type Remember struct {
	scene.Base
	SaveID identity.Identity
}

func (r *Remember) Kind() scene.Kind { return KindRemember }

func (r *Remember) Clone() scene.Component {
	return &Remember{SaveID: r.SaveID}
}

func (r *Remember) PersistentIdentity() identity.Identity { return r.SaveID }

func (r *Remember) SetPersistentIdentity(id identity.Identity) error {
	r.SaveID = id
	return nil
}

// LocalVariables is a named variable bag persisted under SaveID.
type LocalVariables struct {
	scene.Base
	SaveID identity.Identity
	Values map[string]string
}

func (v *LocalVariables) Kind() scene.Kind { return KindLocalVariables }

func (v *LocalVariables) Clone() scene.Component {
	c := &LocalVariables{SaveID: v.SaveID}
	if v.Values != nil {
		c.Values = make(map[string]string, len(v.Values))
		for k, val := range v.Values {
			c.Values[k] = val
		}
	}
	return c
}

func (v *LocalVariables) PersistentIdentity() identity.Identity { return v.SaveID }

func (v *LocalVariables) SetPersistentIdentity(id identity.Identity) error {
	v.SaveID = id
	return nil
}

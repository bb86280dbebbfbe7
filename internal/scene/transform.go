package scene

// World transforms are cached per object and recomputed lazily from the local
// transform chain. Any local change marks the subtree dirty.

func (o *Object) LocalPosition() Vec3 { return o.localPos }
func (o *Object) LocalRotation() Quat { return o.localRot }

func (o *Object) SetLocalPosition(p Vec3) {
	o.localPos = p
	o.markDirty()
}

func (o *Object) SetLocalRotation(q Quat) {
	o.localRot = q.Normalize()
	o.markDirty()
}

// Position is the world position.
func (o *Object) Position() Vec3 {
	o.refresh()
	return o.worldPos
}

// Rotation is the world rotation.
func (o *Object) Rotation() Quat {
	o.refresh()
	return o.worldRot
}

// SetPosition places o at world position p.
func (o *Object) SetPosition(p Vec3) {
	if o.parent == nil {
		o.SetLocalPosition(p)
		return
	}
	o.parent.refresh()
	o.SetLocalPosition(o.parent.worldRot.Inverse().Rotate(p.Sub(o.parent.worldPos)))
}

// SetRotation sets the world rotation.
func (o *Object) SetRotation(q Quat) {
	if o.parent == nil {
		o.SetLocalRotation(q)
		return
	}
	o.parent.refresh()
	o.SetLocalRotation(o.parent.worldRot.Inverse().Mul(q))
}

func (o *Object) markDirty() {
	if o.dirty {
		return
	}
	o.dirty = true
	for _, ch := range o.children {
		ch.markDirty()
	}
}

func (o *Object) refresh() {
	if !o.dirty {
		return
	}
	if o.parent == nil {
		o.worldPos, o.worldRot = o.localPos, o.localRot
	} else {
		o.parent.refresh()
		o.worldRot = o.parent.worldRot.Mul(o.localRot).Normalize()
		o.worldPos = o.parent.worldPos.Add(o.parent.worldRot.Rotate(o.localPos))
	}
	o.dirty = false
}

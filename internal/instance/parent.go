package instance

import (
	"strings"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/scene"
)

// ParentDescription locates an instance's parent without object pointers.
// When Anchored, Path is relative to the nearest ancestor carrying an
// instance guid (hash AnchorHash) and empty means the anchor itself.
// Otherwise Path is the absolute name path of the parent from the scene
// root, empty for a root instance.
type ParentDescription struct {
	AnchorHash int64
	Anchored   bool
	Path       string
}

// DescribeParent walks up from o's parent until it meets an anchor or the
// scene root.
func DescribeParent(o *scene.Object) ParentDescription {
	var names []string
	var d ParentDescription
	for cur := o.Parent(); cur != nil; cur = cur.Parent() {
		if g, ok := scene.GetComponent[*component.InstanceGUID](cur); ok && !g.GUID.IsZero() {
			d.Anchored = true
			d.AnchorHash = g.GUID.Hash()
			break
		}
		names = append(names, cur.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	d.Path = strings.Join(names, "/")
	return d
}

// IsRoot reports whether the description names no parent at all.
func (d ParentDescription) IsRoot() bool { return !d.Anchored && d.Path == "" }

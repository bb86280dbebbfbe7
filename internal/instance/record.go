package instance

import (
	"encoding/json"
	"fmt"

	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
)

// Record is the persisted form of Metadata. Variant selects how
// TemplateReference is resolved on load.
type Record struct {
	Variant           Variant              `json:"variant" yaml:"variant"`
	TemplateReference string               `json:"templateReference" yaml:"templateReference"`
	OriginSceneID     string               `json:"originSceneId" yaml:"originSceneId"`
	ParentDescription ParentRecord         `json:"parentDescription" yaml:"parentDescription"`
	HierarchyDepth    int                  `json:"hierarchyDepth" yaml:"hierarchyDepth"`
	SiblingIndex      int                  `json:"siblingIndex" yaml:"siblingIndex"`
	Position          [3]float32           `json:"position" yaml:"position,flow"`
	Rotation          [4]float32           `json:"rotation" yaml:"rotation,flow"`
	DisplayName       string               `json:"displayName" yaml:"displayName"`
	SaveIDMaps        []identity.SaveIDMap `json:"saveIdMaps" yaml:"saveIdMaps"`
}

// ParentRecord is ParentDescription on the wire. AnchorHash is absent for
// absolute paths.
type ParentRecord struct {
	AnchorHash *int64 `json:"anchorHash,omitempty" yaml:"anchorHash,omitempty"`
	Path       string `json:"path" yaml:"path"`
}

// ToRecord snapshots m's persisted fields.
func ToRecord(m *Metadata) Record {
	r := Record{
		Variant:           m.Variant,
		TemplateReference: m.TemplateRef,
		OriginSceneID:     m.SceneID,
		ParentDescription: ParentRecord{Path: m.Parent.Path},
		HierarchyDepth:    m.Depth,
		SiblingIndex:      m.SiblingIndex,
		Position:          [3]float32{m.Position.X, m.Position.Y, m.Position.Z},
		Rotation:          [4]float32{m.Rotation.X, m.Rotation.Y, m.Rotation.Z, m.Rotation.W},
		DisplayName:       m.DisplayName,
		SaveIDMaps:        append([]identity.SaveIDMap{}, m.SaveIDMaps...),
	}
	if m.Parent.Anchored {
		h := m.Parent.AnchorHash
		r.ParentDescription.AnchorHash = &h
	}
	return r
}

// FromRecord rebuilds metadata with no live instance. Unknown variants are
// rejected with report.ErrUnknownVariant.
func FromRecord(r Record) (*Metadata, error) {
	switch r.Variant {
	case VariantInstance, VariantItemInstance:
	default:
		return nil, fmt.Errorf("%w: %q (template %q)", report.ErrUnknownVariant, r.Variant, r.TemplateReference)
	}
	m := &Metadata{
		Variant:      r.Variant,
		TemplateRef:  r.TemplateReference,
		SceneID:      r.OriginSceneID,
		Parent:       ParentDescription{Path: r.ParentDescription.Path},
		Depth:        r.HierarchyDepth,
		SiblingIndex: r.SiblingIndex,
		Position:     scene.Vec3{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]},
		Rotation:     scene.Quat{X: r.Rotation[0], Y: r.Rotation[1], Z: r.Rotation[2], W: r.Rotation[3]},
		DisplayName:  r.DisplayName,
		SaveIDMaps:   append([]identity.SaveIDMap(nil), r.SaveIDMaps...),
	}
	if r.ParentDescription.AnchorHash != nil {
		m.Parent.Anchored = true
		m.Parent.AnchorHash = *r.ParentDescription.AnchorHash
	}
	return m, nil
}

// FromRecords converts every record it can; the rest are reported.
func FromRecords(records []Record) ([]*Metadata, report.Report) {
	var rep report.Report
	out := make([]*Metadata, 0, len(records))
	for _, r := range records {
		m, err := FromRecord(r)
		if err != nil {
			rep.Add(err)
			continue
		}
		out = append(out, m)
	}
	return out, rep
}

// Encode serializes records as a JSON array.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode instance records: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array written by Encode.
func Decode(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode instance records: %w", err)
	}
	return records, nil
}

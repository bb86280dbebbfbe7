package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const templatesYAML = `
- guid: tpl-chest
  name: Chest
  components:
    - kind: remember
      id: chest-1
  children:
    - name: Lid
      position: [0, 0.5, 0]
      components:
        - kind: marker
          id: chest-lid
- guid: tpl-chest
  name: ChestCopy
- guid: tpl-lamp
  name: Lamp
  inactive: true
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestTemplateCatalog_ResolveAndDedupe(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ix := component.NewIndexes(zap.NewNop())
	c, err := LoadTemplateCatalog(writeFile(t, "templates.yaml", templatesYAML), ix, zap.New(core))
	require.NoError(t, err)

	require.Len(t, c.All(), 3)
	require.Equal(t, 2, c.Count())
	require.Equal(t, 1, logs.FilterMessage("duplicate template guid ignored").Len())

	chest, ok := c.TryResolve("tpl-chest")
	require.True(t, ok)
	require.Equal(t, "Chest", chest.Name())
	lid := chest.Find("Lid")
	require.NotNil(t, lid)
	require.InDelta(t, 0.5, lid.LocalPosition().Y, 1e-6)
	m, ok := scene.GetComponent[*component.Marker](lid)
	require.True(t, ok)
	require.Equal(t, "chest-lid", m.ID.String())
	require.Zero(t, ix.Markers.Len(), "templates never register markers")

	lamp, ok := c.TryResolve("tpl-lamp")
	require.True(t, ok)
	require.False(t, lamp.ActiveSelf())

	_, ok = c.TryResolve("tpl-missing")
	require.False(t, ok)
}

func TestTemplateCatalog_AddRebuildsIndex(t *testing.T) {
	c := NewTemplateCatalog(zap.NewNop())
	_, ok := c.TryResolve("tpl-new")
	require.False(t, ok)

	tpl := scene.NewObject("New")
	tpl.AddComponent(&component.TemplateGUID{GUID: identity.New("tpl-new")})
	c.Add(tpl)
	got, ok := c.TryResolve("tpl-new")
	require.True(t, ok)
	require.Same(t, tpl, got)
}

func TestLoadTemplateCatalog_Errors(t *testing.T) {
	ix := component.NewIndexes(zap.NewNop())
	_, err := LoadTemplateCatalog(writeFile(t, "t.yaml", "- name: NoGuid\n"), ix, zap.NewNop())
	require.ErrorContains(t, err, "no guid")

	_, err = LoadTemplateCatalog(writeFile(t, "t.yaml", "- guid: x\n  name: X\n  components:\n    - kind: wormhole\n"), ix, zap.NewNop())
	require.ErrorContains(t, err, "wormhole")

	_, err = LoadTemplateCatalog(filepath.Join(t.TempDir(), "absent.yaml"), ix, zap.NewNop())
	require.Error(t, err)
}

func TestItemCatalog(t *testing.T) {
	body := `
- id: potion-red
  name: Red Potion
  template:
    components:
      - kind: remember
        id: potion-red-1
`
	c, err := LoadItemCatalog(writeFile(t, "items.yaml", body), component.NewIndexes(zap.NewNop()))
	require.NoError(t, err)
	require.Equal(t, 1, c.Count())

	tpl, ok := c.TryResolve("potion-red")
	require.True(t, ok)
	require.Equal(t, "Red Potion", tpl.Name())
	_, ok = c.TryResolve("potion-blue")
	require.False(t, ok)
}

func TestLoadSceneLayout(t *testing.T) {
	body := `
- name: Level
  children:
    - name: Room
      position: [4, 0, 0]
      components:
        - kind: instance_guid
          id: room-1
      children:
        - name: Shelf
          position: [0, 1, 0]
`
	ix := component.NewIndexes(zap.NewNop())
	sc := scene.New("scene-1", "Test")
	n, err := LoadSceneLayout(writeFile(t, "layout.yaml", body), sc, ix)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	shelf := sc.Find("Level/Room/Shelf")
	require.NotNil(t, shelf)
	require.InDelta(t, 4, shelf.Position().X, 1e-6)
	require.InDelta(t, 1, shelf.Position().Y, 1e-6)
	require.True(t, ix.Anchors.Has(identity.New("room-1")))
}

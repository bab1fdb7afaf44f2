package catalog

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SkipsInvalidAndDuplicateEntries(t *testing.T) {
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)

	c, err := Parse([]byte(`
items:
  - id: Beans
    rarity: common
    min_quantity: 1
    max_quantity: 2
    drop_chance: 0.5
  - id: beans
    rarity: rare
    min_quantity: 1
    max_quantity: 1
    drop_chance: 0.5
  - id: broken_knife
    rarity: uncommon
    durable: true
    min_quantity: 1
    max_quantity: 1
    drop_chance: 0.5
  - id: ""
    rarity: common
    min_quantity: 1
    max_quantity: 1
`), logger)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	def, ok := c.Resolve("BEANS")
	require.True(t, ok)
	assert.Equal(t, "beans", def.ID)
	assert.Equal(t, Common, def.Rarity)
	assert.Contains(t, logs.String(), "duplicate item id")
	assert.Contains(t, logs.String(), "max_durability")
}

func TestParse_RejectsUnknownRarity(t *testing.T) {
	_, err := Parse([]byte(`
items:
  - id: x
    rarity: mythic
    min_quantity: 1
    max_quantity: 1
`), log.New(&bytes.Buffer{}, "", 0))
	assert.Error(t, err)
}

func TestResolve_Absent(t *testing.T) {
	c := New(nil, nil)
	_, ok := c.Resolve("nope")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.Resolve("nope")
	assert.False(t, ok)
	assert.Empty(t, nilCatalog.ByRarity(Common))
}

func TestByRarity_KeepsLoadOrder(t *testing.T) {
	c := New([]Definition{
		{ID: "a", Rarity: Rare, MinQuantity: 1, MaxQuantity: 1, DropChance: 1},
		{ID: "b", Rarity: Common, MinQuantity: 1, MaxQuantity: 1, DropChance: 1},
		{ID: "c", Rarity: Rare, MinQuantity: 1, MaxQuantity: 1, DropChance: 1},
	}, nil)

	rare := c.ByRarity(Rare)
	require.Len(t, rare, 2)
	assert.Equal(t, "a", rare[0].ID)
	assert.Equal(t, "c", rare[1].ID)
	assert.Empty(t, c.ByRarity(Legendary))
	assert.Len(t, c.All(), 3)
}

func TestDefault_LoadsEmbeddedItems(t *testing.T) {
	var logs bytes.Buffer
	c, err := Default(log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.Empty(t, logs.String())

	for _, r := range Rarities {
		assert.NotEmpty(t, c.ByRarity(r), "rarity %s has no items", r)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - id: rope
    name: Rope
    category: tool
    rarity: uncommon
    min_quantity: 1
    max_quantity: 1
    drop_chance: 0.2
`), 0o644))

	c, err := Load(path, nil)
	require.NoError(t, err)
	def, ok := c.Resolve("rope")
	require.True(t, ok)
	assert.Equal(t, Tool, def.Category)
	assert.Equal(t, "Rope", def.DisplayName())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"), nil)
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	c, err := Default(nil)
	require.NoError(t, err)

	t.Run("typo", func(t *testing.T) {
		assert.Equal(t, "machete", c.Suggest("machette")[0])
	})
	t.Run("prefix", func(t *testing.T) {
		assert.Contains(t, c.Suggest("bott"), "bottled_water")
	})
	t.Run("nothing close", func(t *testing.T) {
		assert.Empty(t, c.Suggest("zzzzzzzzzzzzzzzz"))
	})
}

func TestRarityText(t *testing.T) {
	b, err := Epic.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "epic", string(b))

	var r Rarity
	require.NoError(t, r.UnmarshalText([]byte("Legendary")))
	assert.Equal(t, Legendary, r)
	assert.Error(t, r.UnmarshalText([]byte("mythic")))
}

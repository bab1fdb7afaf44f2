package inventory

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scavenge/internal/catalog"
	"scavenge/internal/save"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Definition{
		{ID: "beans", Name: "Beans", Category: catalog.Food, Rarity: catalog.Common, MinQuantity: 1, MaxQuantity: 3, DropChance: 1},
		{ID: "water", Name: "Water", Category: catalog.Water, Rarity: catalog.Common, MinQuantity: 1, MaxQuantity: 1, DropChance: 1},
		{ID: "knife", Name: "Knife", Category: catalog.Weapon, Rarity: catalog.Rare, Durable: true, MaxDurability: 10, MinQuantity: 1, MaxQuantity: 1, DropChance: 1},
	}, nil)
}

func TestAddStackable_Merges(t *testing.T) {
	s := NewStore("inventory", InventoryKeys)
	require.NoError(t, s.AddStackable("beans", 3))
	require.NoError(t, s.AddStackable("Beans", 2))

	assert.Equal(t, []Stack{{ItemID: "beans", Quantity: 5}}, s.Stackables())
	assert.ErrorIs(t, s.AddStackable("beans", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, s.AddStackable("beans", -1), ErrInvalidQuantity)
	assert.Equal(t, 5, s.Quantity("beans"))
}

func TestRemoveStackable(t *testing.T) {
	s := NewStore("inventory", InventoryKeys)
	require.NoError(t, s.AddStackable("beans", 5))

	assert.True(t, s.RemoveStackable("beans", 2))
	assert.Equal(t, 3, s.Quantity("beans"))

	assert.True(t, s.RemoveStackable("beans", 3))
	assert.Empty(t, s.Stackables(), "entry is deleted at zero")

	assert.False(t, s.RemoveStackable("beans", 1))
	assert.False(t, s.RemoveStackable("water", 1))

	require.NoError(t, s.AddStackable("beans", 2))
	assert.True(t, s.RemoveStackable("beans", 9), "over-removal drains the entry")
	assert.True(t, s.IsEmpty())
	assert.False(t, s.RemoveStackable("beans", 0))
}

func TestDurables_IdentityNotValue(t *testing.T) {
	s := NewStore("inventory", InventoryKeys)
	a := NewDurable("knife", 5)
	b := &Durable{ID: a.ID, ItemID: a.ItemID, Durability: a.Durability}

	require.NoError(t, s.AddDurable(a))
	require.NoError(t, s.AddDurable(b))
	require.NoError(t, s.AddDurable(a))
	assert.Len(t, s.Durables(), 2, "equal fields are still distinct instances")
	assert.ErrorIs(t, s.AddDurable(nil), ErrNilInstance)

	assert.True(t, s.RemoveDurable(a))
	assert.False(t, s.RemoveDurable(a), "removing an absent instance is a no-op")
	assert.False(t, s.RemoveDurable(nil))
	require.Len(t, s.Durables(), 1)
	assert.Same(t, b, s.Durables()[0])
	assert.Equal(t, 1, b.Quantity())
}

func TestDurableByID(t *testing.T) {
	s := NewStore("inventory", InventoryKeys)
	d := NewDurable("knife", 3)
	require.NoError(t, s.AddDurable(d))

	got, ok := s.DurableByID(d.ID)
	require.True(t, ok)
	assert.Same(t, d, got)
	_, ok = s.DurableByID(uuid.New())
	assert.False(t, ok)
}

func TestTransferAllTo(t *testing.T) {
	inv := NewStore("inventory", InventoryKeys)
	stash := NewStore("stash", StashKeys)
	require.NoError(t, stash.AddStackable("beans", 1))
	require.NoError(t, inv.AddStackable("beans", 4))
	require.NoError(t, inv.AddStackable("water", 2))
	k1, k2 := NewDurable("knife", 1), NewDurable("knife", 9)
	require.NoError(t, inv.AddDurable(k1))
	require.NoError(t, inv.AddDurable(k2))

	inv.TransferAllTo(stash)

	assert.True(t, inv.IsEmpty())
	assert.Equal(t, 5, stash.Quantity("beans"))
	assert.Equal(t, 2, stash.Quantity("water"))
	assert.Equal(t, []*Durable{k1, k2}, stash.Durables())

	inv.TransferAllTo(stash)
	assert.Equal(t, 5, stash.Quantity("beans"), "empty transfer changes nothing")
	stash.TransferAllTo(stash)
	assert.False(t, stash.IsEmpty())
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := save.NewMemoryRepo()
	cat := testCatalog()

	s := NewStore("stash", StashKeys)
	require.NoError(t, s.AddStackable("beans", 7))
	d := NewDurable("knife", 4)
	require.NoError(t, s.AddDurable(d))

	b := save.NewBatch()
	require.NoError(t, s.WriteTo(b))
	require.NoError(t, repo.Apply(ctx, b))

	got, err := Load(ctx, repo, "stash", StashKeys, cat, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity("beans"))
	require.Len(t, got.Durables(), 1)
	assert.Equal(t, d.ID, got.Durables()[0].ID)
	assert.Equal(t, 4, got.Durables()[0].Durability)

	empty, err := Load(ctx, repo, "inventory", InventoryKeys, cat, nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestLoad_SkipsBadEntries(t *testing.T) {
	ctx := context.Background()
	repo := save.NewMemoryRepo()
	dup := uuid.New().String()
	repo.Seed(map[save.Key]string{
		save.KeyInventoryStackables: `[{"itemId":"beans","count":2},{"itemId":"ghost","count":1},{"itemId":"water","count":0}]`,
		save.KeyInventoryDurables: `[
			{"id":"` + dup + `","itemId":"knife","quantity":1,"durability":50},
			{"id":"` + dup + `","itemId":"knife","quantity":1,"durability":-3},
			{"itemId":"knife","quantity":2,"durability":6},
			{"itemId":"sword","quantity":1,"durability":6},
			{"itemId":"knife","quantity":0,"durability":6}
		]`,
	})
	var logs bytes.Buffer

	s, err := Load(ctx, repo, "inventory", InventoryKeys, testCatalog(), log.New(&logs, "", 0))
	require.NoError(t, err)

	assert.Equal(t, []Stack{{ItemID: "beans", Quantity: 2}}, s.Stackables())
	durables := s.Durables()
	require.Len(t, durables, 4)
	assert.Equal(t, 10, durables[0].Durability, "clamped to max")
	assert.Equal(t, 0, durables[1].Durability, "clamped to zero")
	assert.NotEqual(t, durables[0].ID, durables[1].ID)
	assert.NotEqual(t, durables[2].ID, durables[3].ID)
	assert.Contains(t, logs.String(), `unknown item "ghost"`)
	assert.Contains(t, logs.String(), `unknown item "sword"`)
}

func TestLoad_MalformedValueIsEmpty(t *testing.T) {
	repo := save.NewMemoryRepo()
	repo.Seed(map[save.Key]string{
		save.KeyStashStackables: `{not json`,
		save.KeyStashDurables:   `42`,
	})
	var logs bytes.Buffer

	s, err := Load(context.Background(), repo, "stash", StashKeys, testCatalog(), log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
	assert.Contains(t, logs.String(), "malformed")
}

func TestEntries_FilterAndOrder(t *testing.T) {
	cat := testCatalog()
	s := NewStore("inventory", InventoryKeys)
	require.NoError(t, s.AddStackable("water", 1))
	require.NoError(t, s.AddStackable("beans", 2))
	require.NoError(t, s.AddStackable("ghost", 1))
	d := NewDurable("knife", 7)
	require.NoError(t, s.AddDurable(d))

	all := s.Entries(cat, "")
	require.Len(t, all, 3)
	assert.Equal(t, "knife", all[0].ItemID, "rarer items first")
	assert.Equal(t, d.ID.String(), all[0].InstanceID)
	assert.Equal(t, 10, all[0].MaxDurability)
	assert.Equal(t, "beans", all[1].ItemID)

	food := s.Entries(cat, catalog.Food)
	require.Len(t, food, 1)
	assert.Equal(t, 2, food[0].Quantity)
	assert.Empty(t, s.Entries(cat, catalog.Tool))
}

func TestClone_IndependentEntriesSharedDurables(t *testing.T) {
	s := NewStore("loadout", LoadoutKeys)
	require.NoError(t, s.AddStackable("beans", 2))
	k := NewDurable("knife", 5)
	require.NoError(t, s.AddDurable(k))

	c := s.Clone()
	require.NoError(t, c.AddStackable("beans", 1))
	assert.True(t, c.RemoveDurable(k))

	assert.Equal(t, 2, s.Quantity("beans"))
	assert.Equal(t, []*Durable{k}, s.Durables())
	assert.Equal(t, 3, c.Quantity("beans"))
	assert.Equal(t, LoadoutKeys, c.Keys())
	assert.Equal(t, "loadout", c.Name())
}

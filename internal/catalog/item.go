package catalog

import (
	"fmt"
	"strings"
)

// Rarity is a loot tier. The declaration order is the fixed tier order used
// when walking rarity weights; Common is the lowest tier.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
)

// Rarities lists every tier in walk order.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary}

var rarityNames = map[Rarity]string{
	Common:    "common",
	Uncommon:  "uncommon",
	Rare:      "rare",
	Epic:      "epic",
	Legendary: "legendary",
}

func (r Rarity) String() string {
	if name, ok := rarityNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rarity(%d)", int(r))
}

func (r Rarity) Valid() bool {
	_, ok := rarityNames[r]
	return ok
}

// ParseRarity accepts tier names case-insensitively.
func ParseRarity(s string) (Rarity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range rarityNames {
		if name == s {
			return r, nil
		}
	}
	return Common, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown rarity %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	parsed, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Category groups items for inventory views.
type Category string

const (
	Food   Category = "food"
	Water  Category = "water"
	Health Category = "health"
	Tool   Category = "tool"
	Weapon Category = "weapon"
	Misc   Category = "misc"
)

// Definition is an immutable item definition owned by the Catalog.
type Definition struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Category      Category `yaml:"category" json:"category"`
	Rarity        Rarity   `yaml:"rarity" json:"rarity"`
	Durable       bool     `yaml:"durable" json:"durable"`
	MaxDurability int      `yaml:"max_durability" json:"max_durability,omitempty"`
	MinQuantity   int      `yaml:"min_quantity" json:"min_quantity"`
	MaxQuantity   int      `yaml:"max_quantity" json:"max_quantity"`
	DropChance    float64  `yaml:"drop_chance" json:"drop_chance"`
	Description   string   `yaml:"description" json:"description,omitempty"`

	// Restore effects, consumed on use.
	RestoreHunger int `yaml:"restore_hunger" json:"restore_hunger,omitempty"`
	RestoreThirst int `yaml:"restore_thirst" json:"restore_thirst,omitempty"`
	RestoreHealth int `yaml:"restore_health" json:"restore_health,omitempty"`
}

// Validate checks the invariants a definition must satisfy to enter the catalog.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("item id is required")
	}
	if !d.Rarity.Valid() {
		return fmt.Errorf("item %s: invalid rarity %d", d.ID, int(d.Rarity))
	}
	if d.MinQuantity < 1 {
		return fmt.Errorf("item %s: min_quantity must be >= 1, got %d", d.ID, d.MinQuantity)
	}
	if d.MaxQuantity < d.MinQuantity {
		return fmt.Errorf("item %s: max_quantity (%d) must be >= min_quantity (%d)", d.ID, d.MaxQuantity, d.MinQuantity)
	}
	if d.DropChance < 0 || d.DropChance > 1 {
		return fmt.Errorf("item %s: drop_chance must be in [0, 1], got %f", d.ID, d.DropChance)
	}
	if d.Durable && d.MaxDurability < 1 {
		return fmt.Errorf("item %s: durable items need max_durability >= 1", d.ID)
	}
	return nil
}

// DisplayName falls back to the id when no name is configured.
func (d *Definition) DisplayName() string {
	if d == nil {
		return ""
	}
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.ID
}

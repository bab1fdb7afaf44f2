package inventory

import (
	"sort"

	"scavenge/internal/catalog"
)

// Entry is a display row joining a held item with its definition.
type Entry struct {
	ItemID        string           `json:"itemId"`
	Name          string           `json:"name"`
	Category      catalog.Category `json:"category"`
	Rarity        catalog.Rarity   `json:"rarity"`
	Quantity      int              `json:"quantity"`
	InstanceID    string           `json:"instanceId,omitempty"`
	Durability    int              `json:"durability,omitempty"`
	MaxDurability int              `json:"maxDurability,omitempty"`
}

// Entries lists the store's contents, optionally filtered by category. An
// empty category matches everything. Entries whose definition cannot be
// resolved are omitted.
func (s *Store) Entries(resolver Resolver, category catalog.Category) []Entry {
	var out []Entry
	for _, st := range s.Stackables() {
		def, ok := resolver.Resolve(st.ItemID)
		if !ok || (category != "" && def.Category != category) {
			continue
		}
		out = append(out, Entry{
			ItemID:   def.ID,
			Name:     def.DisplayName(),
			Category: def.Category,
			Rarity:   def.Rarity,
			Quantity: st.Quantity,
		})
	}
	for _, d := range s.durables {
		def, ok := resolver.Resolve(d.ItemID)
		if !ok || (category != "" && def.Category != category) {
			continue
		}
		out = append(out, Entry{
			ItemID:        def.ID,
			Name:          def.DisplayName(),
			Category:      def.Category,
			Rarity:        def.Rarity,
			Quantity:      1,
			InstanceID:    d.ID.String(),
			Durability:    d.Durability,
			MaxDurability: def.MaxDurability,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rarity != out[j].Rarity {
			return out[i].Rarity > out[j].Rarity
		}
		return out[i].Name < out[j].Name
	})
	return out
}

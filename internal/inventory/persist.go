package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"scavenge/internal/catalog"
	"scavenge/internal/save"
)

// Resolver looks up item definitions by id.
type Resolver interface {
	Resolve(id string) (*catalog.Definition, bool)
}

type stackRecord struct {
	ItemID string `json:"itemId"`
	Count  int    `json:"count"`
}

type durableRecord struct {
	ID         string `json:"id,omitempty"`
	ItemID     string `json:"itemId"`
	Quantity   int    `json:"quantity"`
	Durability int    `json:"durability"`
}

// WriteTo stages the full contents of the store into b.
func (s *Store) WriteTo(b *save.Batch) error {
	stacks := make([]stackRecord, 0, len(s.stacks))
	for _, st := range s.Stackables() {
		stacks = append(stacks, stackRecord{ItemID: st.ItemID, Count: st.Quantity})
	}
	durables := make([]durableRecord, 0, len(s.durables))
	for _, d := range s.durables {
		durables = append(durables, durableRecord{
			ID:         d.ID.String(),
			ItemID:     d.ItemID,
			Quantity:   1,
			Durability: d.Durability,
		})
	}

	sb, err := json.Marshal(stacks)
	if err != nil {
		return fmt.Errorf("encode %s stackables: %w", s.name, err)
	}
	db, err := json.Marshal(durables)
	if err != nil {
		return fmt.Errorf("encode %s durables: %w", s.name, err)
	}
	b.Put(s.keys.Stackables, string(sb))
	b.Put(s.keys.Durables, string(db))
	return nil
}

// Load rebuilds a store from repo. Missing keys yield an empty store; malformed
// values and entries naming unknown items are logged and skipped. Only a
// repository failure is returned as an error.
func Load(ctx context.Context, repo save.Repository, name string, keys Keys, resolver Resolver, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := NewStore(name, keys)

	raw, ok, err := repo.Get(ctx, keys.Stackables)
	if err != nil {
		return nil, fmt.Errorf("load %s stackables: %w", name, err)
	}
	if ok && raw != "" {
		var recs []stackRecord
		if err := json.Unmarshal([]byte(raw), &recs); err != nil {
			logger.Printf("[inventory] %s: ignoring malformed stackables: %v", name, err)
		}
		for _, r := range recs {
			def, known := resolver.Resolve(r.ItemID)
			if !known {
				logger.Printf("[inventory] %s: skipping unknown item %q", name, r.ItemID)
				continue
			}
			if err := s.AddStackable(def.ID, r.Count); err != nil {
				logger.Printf("[inventory] %s: skipping %q: %v", name, r.ItemID, err)
			}
		}
	}

	raw, ok, err = repo.Get(ctx, keys.Durables)
	if err != nil {
		return nil, fmt.Errorf("load %s durables: %w", name, err)
	}
	if ok && raw != "" {
		var recs []durableRecord
		if err := json.Unmarshal([]byte(raw), &recs); err != nil {
			logger.Printf("[inventory] %s: ignoring malformed durables: %v", name, err)
		}
		seen := make(map[uuid.UUID]bool, len(recs))
		for _, r := range recs {
			def, known := resolver.Resolve(r.ItemID)
			if !known {
				logger.Printf("[inventory] %s: skipping unknown item %q", name, r.ItemID)
				continue
			}
			if r.Quantity <= 0 {
				logger.Printf("[inventory] %s: skipping %q with quantity %d", name, r.ItemID, r.Quantity)
				continue
			}
			durability := clampDurability(r.Durability, def.MaxDurability)
			// Older records may carry quantity > 1; each unit becomes its own instance.
			for i := 0; i < r.Quantity; i++ {
				d := &Durable{ItemID: def.ID, Durability: durability}
				id, err := uuid.Parse(r.ID)
				if i == 0 && err == nil && !seen[id] {
					d.ID = id
				} else {
					d.ID = uuid.New()
				}
				seen[d.ID] = true
				_ = s.AddDurable(d)
			}
		}
	}
	return s, nil
}

func clampDurability(v, max int) int {
	if v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

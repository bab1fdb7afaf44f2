package telemetry

import (
	"encoding/json"
	"time"
)

type Stats struct {
	Period               string            `json:"period"`
	EventCounts          map[EventType]int `json:"event_counts"`
	ItemsFound           int               `json:"items_found"`
	DropsByRarity        map[string]int    `json:"drops_by_rarity"`
	DropsByItem          map[string]int    `json:"drops_by_item"`
	ExpeditionsStarted   int               `json:"expeditions_started"`
	ExpeditionsCompleted int               `json:"expeditions_completed"`
	TicksReplayed        int               `json:"ticks_replayed"`
	TicksDiscarded       int               `json:"ticks_discarded"`
	ItemsUsed            map[string]int    `json:"items_used"`
	DropsPerExpedition   float64           `json:"drops_per_expedition"`
}

// CalculateStats aggregates loot and lifecycle stats from events
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:        since.Format("2006-01-02"),
		EventCounts:   make(map[EventType]int),
		DropsByRarity: make(map[string]int),
		DropsByItem:   make(map[string]int),
		ItemsUsed:     make(map[string]int),
	}

	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventItemFound:
			qty := intField(metadata, "quantity")
			stats.ItemsFound += qty
			if rarity, ok := metadata["rarity"].(string); ok {
				stats.DropsByRarity[rarity] += qty
			}
			if item, ok := metadata["item_id"].(string); ok {
				stats.DropsByItem[item] += qty
			}
		case EventStateChanged:
			switch metadata["to"] {
			case "exploring":
				stats.ExpeditionsStarted++
			case "bunker":
				stats.ExpeditionsCompleted++
			}
		case EventCatchUp:
			stats.TicksReplayed += intField(metadata, "ticks")
			stats.TicksDiscarded += intField(metadata, "skipped")
		case EventItemUsed:
			if item, ok := metadata["item_id"].(string); ok {
				stats.ItemsUsed[item]++
			}
		}
	}

	if stats.ExpeditionsCompleted > 0 {
		stats.DropsPerExpedition = float64(stats.ItemsFound) / float64(stats.ExpeditionsCompleted)
	}

	return stats, nil
}

// JSON numbers decode as float64.
func intField(m EventMetadata, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

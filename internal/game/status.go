package game

import (
	"time"

	"scavenge/internal/expedition"
)

// Status is a read-only snapshot of the expedition for hosts.
type Status struct {
	Phase          expedition.Phase   `json:"phase"`
	Timer          time.Duration      `json:"timer_ns"`
	TimerText      string             `json:"timer"`
	ReturnDuration time.Duration      `json:"return_duration_ns,omitempty"`
	Holding        bool               `json:"holding"`
	Boosting       bool               `json:"boosting"`
	Stamina        expedition.Stamina `json:"stamina"`
	Inventory      int                `json:"inventory_entries"`
	Stash          int                `json:"stash_entries"`
	Loadout        int                `json:"loadout_entries"`
}

func (e *Engine) Status() Status {
	st := e.machine.CurrentState()
	return Status{
		Phase:          st.Phase,
		Timer:          e.machine.Timer(),
		TimerText:      expedition.FormatTimer(e.machine.Timer()),
		ReturnDuration: st.ReturnDuration,
		Holding:        e.machine.Holding(),
		Boosting:       e.machine.Boosting(),
		Stamina:        e.machine.Stamina(),
		Inventory:      len(e.inv.Stackables()) + len(e.inv.Durables()),
		Stash:          len(e.stash.Stackables()) + len(e.stash.Durables()),
		Loadout:        len(e.loadout.Stackables()) + len(e.loadout.Durables()),
	}
}

// Package expedition owns the Bunker -> Exploring -> Returning lifecycle and
// its persisted wall-clock anchors.
package expedition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scavenge/internal/save"
)

type Phase string

const (
	Bunker    Phase = "bunker"
	Exploring Phase = "exploring"
	Returning Phase = "returning"
)

func (p Phase) Valid() bool {
	switch p {
	case Bunker, Exploring, Returning:
		return true
	}
	return false
}

var ErrInvalidTransition = errors.New("invalid expedition transition")

// State is the persisted lifecycle variant. Anchors are only meaningful for
// the phases that set them.
type State struct {
	Phase          Phase         `json:"phase"`
	ExploreAnchor  time.Time     `json:"exploreAnchor,omitzero"`
	LootAnchor     time.Time     `json:"lootAnchor,omitzero"`
	ReturnAnchor   time.Time     `json:"returnAnchor,omitzero"`
	ReturnDuration time.Duration `json:"returnDuration,omitempty"`
}

var expeditionKeys = []save.Key{
	save.KeyExploreAnchor,
	save.KeyLootAnchor,
	save.KeyReturnAnchor,
	save.KeyReturnDuration,
}

// stage writes st into b, deleting any anchor the phase does not use.
func (st State) stage(b *save.Batch) {
	for _, k := range expeditionKeys {
		b.Remove(k)
	}
	b.Put(save.KeyState, string(st.Phase))
	switch st.Phase {
	case Exploring:
		b.Put(save.KeyExploreAnchor, save.FormatTime(st.ExploreAnchor))
		b.Put(save.KeyLootAnchor, save.FormatTime(st.LootAnchor))
	case Returning:
		b.Put(save.KeyReturnAnchor, save.FormatTime(st.ReturnAnchor))
		b.Put(save.KeyReturnDuration, save.FormatSeconds(st.ReturnDuration))
	}
}

// loadState reads the persisted variant. A missing or malformed value yields
// Bunker with ok=false; only repository failures are returned as errors.
func loadState(ctx context.Context, repo save.Repository) (st State, ok bool, err error) {
	get := func(k save.Key) (string, bool, error) {
		v, found, err := repo.Get(ctx, k)
		if err != nil {
			return "", false, fmt.Errorf("load %s: %w", k, err)
		}
		return v, found, nil
	}

	raw, found, err := get(save.KeyState)
	if err != nil || !found {
		return State{Phase: Bunker}, !found && err == nil, err
	}
	phase := Phase(raw)
	if !phase.Valid() {
		return State{Phase: Bunker}, false, nil
	}

	switch phase {
	case Exploring:
		v, _, err := get(save.KeyExploreAnchor)
		if err != nil {
			return State{Phase: Bunker}, false, err
		}
		anchor, perr := save.ParseTime(v)
		if perr != nil {
			return State{Phase: Bunker}, false, nil
		}
		st = State{Phase: Exploring, ExploreAnchor: anchor, LootAnchor: anchor}

		v, found, err := get(save.KeyLootAnchor)
		if err != nil {
			return State{Phase: Bunker}, false, err
		}
		if found {
			if la, perr := save.ParseTime(v); perr == nil && la.After(anchor) {
				st.LootAnchor = la
			}
		}
		return st, true, nil

	case Returning:
		v, _, err := get(save.KeyReturnAnchor)
		if err != nil {
			return State{Phase: Bunker}, false, err
		}
		anchor, perr := save.ParseTime(v)
		if perr != nil {
			return State{Phase: Bunker}, false, nil
		}
		v, _, err = get(save.KeyReturnDuration)
		if err != nil {
			return State{Phase: Bunker}, false, err
		}
		d, perr := save.ParseSeconds(v)
		if perr != nil {
			return State{Phase: Bunker}, false, nil
		}
		return State{Phase: Returning, ReturnAnchor: anchor, ReturnDuration: d}, true, nil
	}
	return State{Phase: Bunker}, true, nil
}

// FormatTimer renders d as HH:MM:SS, truncating sub-second precision.
func FormatTimer(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

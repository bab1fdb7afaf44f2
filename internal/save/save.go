// Package save defines the persisted key space and its storage backends.
package save

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Key names one persisted value.
type Key string

const (
	KeyState          Key = "expedition.state"
	KeyExploreAnchor  Key = "expedition.exploreAnchor"
	KeyReturnAnchor   Key = "expedition.returnAnchor"
	KeyReturnDuration Key = "expedition.returnDuration"
	KeyLootAnchor     Key = "expedition.lootAnchor"

	KeyInventoryStackables Key = "inventory.stackables"
	KeyInventoryDurables   Key = "inventory.durables"
	KeyStashStackables     Key = "stash.stackables"
	KeyStashDurables       Key = "stash.durables"
	KeyLoadoutStackables   Key = "loadout.stackables"
	KeyLoadoutDurables     Key = "loadout.durables"
)

// AllKeys lists the whole key space.
var AllKeys = []Key{
	KeyState, KeyExploreAnchor, KeyReturnAnchor, KeyReturnDuration, KeyLootAnchor,
	KeyInventoryStackables, KeyInventoryDurables, KeyStashStackables, KeyStashDurables,
	KeyLoadoutStackables, KeyLoadoutDurables,
}

// Batch is a set of writes and deletes applied atomically.
type Batch struct {
	Set    map[Key]string
	Delete []Key
}

func NewBatch() *Batch {
	return &Batch{Set: make(map[Key]string)}
}

func (b *Batch) Put(k Key, v string) {
	if b.Set == nil {
		b.Set = make(map[Key]string)
	}
	b.Set[k] = v
	b.Delete = removeKey(b.Delete, k)
}

func (b *Batch) Remove(k Key) {
	delete(b.Set, k)
	for _, existing := range b.Delete {
		if existing == k {
			return
		}
	}
	b.Delete = append(b.Delete, k)
}

func (b *Batch) Empty() bool {
	return b == nil || (len(b.Set) == 0 && len(b.Delete) == 0)
}

func removeKey(keys []Key, k Key) []Key {
	out := keys[:0]
	for _, existing := range keys {
		if existing != k {
			out = append(out, existing)
		}
	}
	return out
}

// Repository persists the key space. Apply must not return before the batch
// is durable; implementations apply a batch all-or-nothing.
type Repository interface {
	Get(ctx context.Context, k Key) (string, bool, error)
	Apply(ctx context.Context, b *Batch) error
}

// FormatTime encodes a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t.UTC(), nil
}

// FormatSeconds encodes a duration as float seconds.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// ParseSeconds decodes float seconds under the rules of SecondsToDuration.
func ParseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse seconds: %w", err)
	}
	return SecondsToDuration(f)
}

// maxSeconds is the first value whose nanosecond count overflows a Duration.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// SecondsToDuration converts float seconds, rejecting NaN, infinities,
// negatives and values past the Duration range.
func SecondsToDuration(f float64) (time.Duration, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= maxSeconds {
		return 0, fmt.Errorf("invalid seconds value %v", f)
	}
	return time.Duration(f * float64(time.Second)), nil
}

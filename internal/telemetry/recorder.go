package telemetry

import (
	"log"

	"scavenge/internal/event"
)

// Recorder copies engine events into a Repository.
type Recorder struct {
	repo   Repository
	logger *log.Logger
}

func NewRecorder(repo Repository, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Attach subscribes the recorder to bus and returns the unsubscribe func.
func (r *Recorder) Attach(bus *event.Bus) func() {
	return bus.Subscribe(r.Handle)
}

func (r *Recorder) Handle(e event.Event) {
	var (
		typ  EventType
		meta EventMetadata
	)
	switch e.Kind {
	case event.ItemFound:
		if e.Drop.Def == nil {
			return
		}
		typ = EventItemFound
		meta = EventMetadata{
			"item_id":  e.Drop.Def.ID,
			"rarity":   e.Drop.Def.Rarity.String(),
			"quantity": e.Drop.Quantity,
			"durable":  e.Drop.IsDurable(),
		}
	case event.StateChanged:
		typ = EventStateChanged
		meta = EventMetadata{"from": e.From, "to": e.To}
	case event.CatchUp:
		typ = EventCatchUp
		meta = EventMetadata{"ticks": e.Ticks, "skipped": e.Skipped}
	case event.Transfer:
		typ = EventTransfer
		meta = EventMetadata{"stackables": e.Stackables, "durables": e.Durables}
	case event.ItemUsed:
		typ = EventItemUsed
		meta = EventMetadata{"item_id": e.ItemID, "store": e.Store}
	default:
		return
	}
	if err := r.repo.RecordEvent(typ, e.At, meta); err != nil {
		r.logger.Printf("[telemetry] record %s: %v", typ, err)
	}
}

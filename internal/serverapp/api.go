package serverapp

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"scavenge/internal/catalog"
	"scavenge/internal/expedition"
	"scavenge/internal/game"
	"scavenge/internal/inventory"
	"scavenge/internal/save"
)

type apiHandler struct {
	host   *game.Host
	logger *log.Logger
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// fail maps engine errors onto HTTP statuses.
func (h *apiHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, expedition.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrUnknownStore):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotHeld):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotConsumable), errors.Is(err, game.ErrNotEquippable):
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, inventory.ErrInvalidQuantity):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUnknownItem):
		writeErr(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Printf("[server] %v", err)
		writeErr(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *apiHandler) status(w http.ResponseWriter) {
	var st game.Status
	_ = h.host.Do(func(e *game.Engine) error {
		st = e.Status()
		return nil
	})
	writeJSON(w, http.StatusOK, st)
}

func (h *apiHandler) Expedition(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.status(w)
}

func (h *apiHandler) Explore(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.host.Do(func(e *game.Engine) error { return e.Explore(r.Context()) }); err != nil {
		h.fail(w, err)
		return
	}
	h.status(w)
}

func (h *apiHandler) Return(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.host.Do(func(e *game.Engine) error { return e.Return(r.Context()) }); err != nil {
		h.fail(w, err)
		return
	}
	h.status(w)
}

func (h *apiHandler) Boost(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Holding bool `json:"holding"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	_ = h.host.Do(func(e *game.Engine) error {
		e.SetBoost(body.Holding)
		return nil
	})
	h.status(w)
}

func (h *apiHandler) Skip(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := save.SecondsToDuration(body.Seconds)
	if err != nil || d <= 0 {
		writeErr(w, http.StatusBadRequest, "seconds must be > 0 and within range")
		return
	}
	if err := h.host.Do(func(e *game.Engine) error { return e.Skip(r.Context(), d) }); err != nil {
		h.fail(w, err)
		return
	}
	h.status(w)
}

func (h *apiHandler) Store(name game.StoreName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		category := catalog.Category(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category"))))
		var entries []inventory.Entry
		err := h.host.Do(func(e *game.Engine) error {
			var err error
			entries, err = e.List(name, category)
			return err
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		if entries == nil {
			entries = []inventory.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"store": name, "items": entries})
	}
}

func (h *apiHandler) ClearInventory(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.host.Do(func(e *game.Engine) error { return e.ClearInventory(r.Context()) }); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *apiHandler) UseItem(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Store  game.StoreName `json:"store"`
		ItemID string         `json:"itemId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	var (
		def         *catalog.Definition
		suggestions []string
	)
	err := h.host.Do(func(e *game.Engine) error {
		var err error
		def, err = e.UseItem(r.Context(), body.Store, body.ItemID)
		if errors.Is(err, catalog.ErrUnknownItem) {
			suggestions = e.Catalog().Suggest(body.ItemID)
		}
		return err
	})
	if errors.Is(err, catalog.ErrUnknownItem) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":       err.Error(),
			"suggestions": suggestions,
		})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"used": def})
}

func (h *apiHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var body struct {
		Store      game.StoreName `json:"store"`
		InstanceID string         `json:"instanceId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(body.InstanceID))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid instanceId")
		return
	}
	if err := h.host.Do(func(e *game.Engine) error { return e.DiscardDurable(r.Context(), body.Store, id) }); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Gear moves items between the stash and the loadout. A request naming an
// instanceId moves that durable; otherwise itemId and quantity (default 1)
// are used.
func (h *apiHandler) Gear(equip bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var body struct {
			ItemID     string `json:"itemId"`
			Quantity   int    `json:"quantity"`
			InstanceID string `json:"instanceId"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}

		var op func(e *game.Engine) error
		switch raw := strings.TrimSpace(body.InstanceID); {
		case raw != "":
			id, err := uuid.Parse(raw)
			if err != nil {
				writeErr(w, http.StatusBadRequest, "invalid instanceId")
				return
			}
			op = func(e *game.Engine) error {
				if equip {
					return e.GearUpDurable(r.Context(), id)
				}
				return e.UngearDurable(r.Context(), id)
			}
		case strings.TrimSpace(body.ItemID) != "":
			op = func(e *game.Engine) error {
				if equip {
					return e.GearUp(r.Context(), body.ItemID, body.Quantity)
				}
				return e.Ungear(r.Context(), body.ItemID, body.Quantity)
			}
		default:
			writeErr(w, http.StatusBadRequest, "itemId or instanceId is required")
			return
		}

		var entries []inventory.Entry
		err := h.host.Do(func(e *game.Engine) error {
			if err := op(e); err != nil {
				return err
			}
			var err error
			entries, err = e.List(game.StoreLoadout, "")
			return err
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		if entries == nil {
			entries = []inventory.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"store": game.StoreLoadout, "items": entries})
	}
}

func (h *apiHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	var since time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	var (
		stats any
		err   error
	)
	_ = h.host.Do(func(e *game.Engine) error {
		stats, err = e.Stats(since)
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *apiHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	var defs []*catalog.Definition
	_ = h.host.Do(func(e *game.Engine) error {
		defs = e.Catalog().All()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"items": defs})
}

package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"scavenge/internal/game"
	"scavenge/internal/httpmw"
)

type Options struct {
	Host   *game.Host
	Logger *log.Logger
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Host == nil {
		return nil, errors.New("host is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "scavenge",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := opts.Host.Do(func(e *game.Engine) error { return e.Ready(r.Context()) }); err != nil {
			opts.Logger.Printf("[server] readiness: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "save storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "scavenge",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := &apiHandler{host: opts.Host, logger: opts.Logger}
	mux.HandleFunc("/api/expedition", api.Expedition)
	mux.HandleFunc("/api/expedition/explore", api.Explore)
	mux.HandleFunc("/api/expedition/return", api.Return)
	mux.HandleFunc("/api/expedition/boost", api.Boost)
	mux.HandleFunc("/api/expedition/skip", api.Skip)
	mux.HandleFunc("/api/inventory", api.Store(game.StoreInventory))
	mux.HandleFunc("/api/stash", api.Store(game.StoreStash))
	mux.HandleFunc("/api/loadout", api.Store(game.StoreLoadout))
	mux.HandleFunc("/api/loadout/add", api.Gear(true))
	mux.HandleFunc("/api/loadout/remove", api.Gear(false))
	mux.HandleFunc("/api/inventory/clear", api.ClearInventory)
	mux.HandleFunc("/api/items/use", api.UseItem)
	mux.HandleFunc("/api/items/discard", api.Discard)
	mux.HandleFunc("/api/stats", api.Stats)
	mux.HandleFunc("/api/catalog", api.Catalog)

	return httpmw.Observe(opts.Logger, nil)(mux), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

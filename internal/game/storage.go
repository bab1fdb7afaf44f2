package game

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"scavenge/internal/config"
	"scavenge/internal/save"
	"scavenge/internal/save/sqlite"
)

// OpenRepository opens the configured save backend. The returned close func
// is never nil.
func OpenRepository(ctx context.Context, st config.Storage) (save.Repository, func() error, error) {
	noop := func() error { return nil }
	switch st.Driver {
	case config.StorageMemory:
		return save.NewMemoryRepo(), noop, nil
	case config.StorageFile:
		repo, err := save.NewFileRepo(st.DataDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file save: %w", err)
		}
		return repo, noop, nil
	case config.StorageSQLite, "":
		if err := os.MkdirAll(st.DataDir, 0o755); err != nil {
			return nil, noop, err
		}
		store, err := sqlite.Open(ctx, filepath.Join(st.DataDir, sqlite.FileName))
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown storage driver %q", st.Driver)
}

package ops

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"scavenge/internal/expedition"
	"scavenge/internal/save"
	"scavenge/internal/save/sqlite"
)

// ErrNoSave means the directory holds neither save backend's file.
var ErrNoSave = errors.New("no save found")

// Report summarizes a save directory.
type Report struct {
	Driver string
	Phase  expedition.Phase
	Values map[save.Key]string
}

// Same reports whether both saves hold identical key spaces.
func (r Report) Same(other Report) bool {
	return r.Phase == other.Phase && maps.Equal(r.Values, other.Values)
}

// Inspect reads every persisted key from dir. It fails when the phase is not
// one the engine would resume from.
func Inspect(ctx context.Context, dir string) (Report, error) {
	repo, driver, closeRepo, err := openExisting(ctx, dir)
	if err != nil {
		return Report{}, err
	}
	defer closeRepo()

	rep := Report{Driver: driver, Phase: expedition.Bunker, Values: map[save.Key]string{}}
	for _, k := range save.AllKeys {
		v, ok, err := repo.Get(ctx, k)
		if err != nil {
			return Report{}, err
		}
		if ok {
			rep.Values[k] = v
		}
	}
	if v, ok := rep.Values[save.KeyState]; ok {
		rep.Phase = expedition.Phase(v)
		if !rep.Phase.Valid() {
			return rep, fmt.Errorf("malformed expedition state %q", v)
		}
	}
	return rep, nil
}

func openExisting(ctx context.Context, dir string) (save.Repository, string, func() error, error) {
	if _, err := os.Stat(filepath.Join(dir, sqlite.FileName)); err == nil {
		store, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.FileName))
		if err != nil {
			return nil, "", nil, err
		}
		return store, "sqlite", store.Close, nil
	}
	if _, err := os.Stat(filepath.Join(dir, save.FileName)); err == nil {
		repo, err := save.NewFileRepo(dir)
		if err != nil {
			return nil, "", nil, err
		}
		return repo, "file", func() error { return nil }, nil
	}
	return nil, "", nil, fmt.Errorf("%w in %s", ErrNoSave, dir)
}

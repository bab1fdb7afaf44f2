package save

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the save file created inside the data directory.
const FileName = "save.json"

// FileRepo persists the key space to a single JSON file in dataDir.
type FileRepo struct {
	mu      sync.RWMutex
	dataDir string
	cache   map[Key]string
}

// NewFileRepo creates the data directory and loads any existing save file.
func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		dataDir: dataDir,
		cache:   make(map[Key]string),
	}
	data, err := os.ReadFile(r.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.cache); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.filePath(), err)
	}
	return r, nil
}

func (r *FileRepo) filePath() string {
	return filepath.Join(r.dataDir, FileName)
}

func (r *FileRepo) Get(ctx context.Context, k Key) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.cache[k]
	return v, ok, nil
}

// Apply writes the whole key space to a temp file, syncs it and renames it
// over the save file, so a crash leaves either the old or the new state.
func (r *FileRepo) Apply(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[Key]string, len(r.cache)+len(b.Set))
	for k, v := range r.cache {
		next[k] = v
	}
	for k, v := range b.Set {
		next[k] = v
	}
	for _, k := range b.Delete {
		delete(next, k)
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileSync(r.filePath(), data); err != nil {
		return err
	}
	r.cache = next
	return nil
}

func writeFileSync(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".save-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

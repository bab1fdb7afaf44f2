// Package catalog holds the immutable item definitions loaded at startup.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// ErrUnknownItem is returned by lookups that require a known definition.
var ErrUnknownItem = errors.New("unknown item")

//go:embed items.yml
var defaultItems []byte

// Catalog is a read-only lookup of definitions by id. It is safe to share
// between goroutines once built.
type Catalog struct {
	defs     map[string]*Definition
	order    []string
	byRarity map[Rarity][]*Definition
}

type file struct {
	Items []Definition `yaml:"items"`
}

// New builds a catalog, skipping (and logging) invalid or duplicate entries.
func New(defs []Definition, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	c := &Catalog{
		defs:     make(map[string]*Definition, len(defs)),
		byRarity: make(map[Rarity][]*Definition),
	}
	for _, d := range defs {
		d.ID = strings.ToLower(strings.TrimSpace(d.ID))
		if err := d.Validate(); err != nil {
			logger.Printf("[catalog] skipping item: %v", err)
			continue
		}
		if _, dup := c.defs[d.ID]; dup {
			logger.Printf("[catalog] skipping duplicate item id %q", d.ID)
			continue
		}
		def := d
		c.defs[def.ID] = &def
		c.order = append(c.order, def.ID)
		c.byRarity[def.Rarity] = append(c.byRarity[def.Rarity], &def)
	}
	return c
}

// Parse decodes a YAML document with a top-level `items` list.
func Parse(b []byte, logger *log.Logger) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Items, logger), nil
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string, logger *log.Logger) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(logger)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b, logger)
}

// Default returns the catalog bundled with the binary.
func Default(logger *log.Logger) (*Catalog, error) {
	return Parse(defaultItems, logger)
}

// Resolve returns the definition for id; ok is false when it is absent.
func (c *Catalog) Resolve(id string) (*Definition, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.defs[strings.ToLower(strings.TrimSpace(id))]
	return d, ok
}

// ByRarity returns the definitions of one tier in load order.
func (c *Catalog) ByRarity(r Rarity) []*Definition {
	if c == nil {
		return nil
	}
	return c.byRarity[r]
}

// All returns every definition in load order.
func (c *Catalog) All() []*Definition {
	if c == nil {
		return nil
	}
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Suggest returns up to three known ids close to the given one, best first.
func (c *Catalog) Suggest(id string) []string {
	id = strings.ToLower(strings.TrimSpace(id))
	if c == nil || id == "" {
		return nil
	}
	type candidate struct {
		id   string
		dist int
	}
	var cands []candidate
	for _, known := range c.order {
		if strings.HasPrefix(known, id) {
			cands = append(cands, candidate{id: known})
			continue
		}
		dist := levenshtein.ComputeDistance(id, known)
		if dist > distanceLimit(len(known)) {
			continue
		}
		cands = append(cands, candidate{id: known, dist: dist})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].id < cands[j].id
		}
		return cands[i].dist < cands[j].dist
	})
	out := make([]string, 0, 3)
	for _, cand := range cands {
		out = append(out, cand.id)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

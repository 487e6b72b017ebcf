// Package catalog loads the unit/building JSON document described in spec
// §4.10 and §6: a read-only, indexed-by-key and grouped-by-faction record
// set that factories consult to populate Sprite/Combat/Building components.
// Grounded on the teacher's engine/systems/production.go TechTree, which
// read a similarly-shaped (but Go-literal, not JSON) unit table; this
// package replaces that literal table with the spec's on-disk JSON load.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ProjectileKind mirrors core.ProjectileKind without importing engine/core,
// keeping the catalog a leaf package the way the teacher's asset-facing
// packages are.
type ProjectileKind string

const (
	ProjectileHitscan ProjectileKind = "hitscan"
	ProjectileBullet  ProjectileKind = "bullet"
	ProjectileMissile ProjectileKind = "missile"
)

// Weapon is a catalog entry's combat descriptor (spec §6's "weapon" object).
type Weapon struct {
	Damage     int            `json:"damage"`
	Cooldown   float64        `json:"cooldown"`
	Range      float64        `json:"range"`
	Projectile ProjectileKind `json:"projectile_kind"`
}

// Footprint is a building's occupied cell rectangle.
type Footprint struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Entry is one catalog record, covering the union of fields spec §6 names
// for units, buildings, and infantry; unused fields are simply zero for a
// kind that doesn't need them (e.g. Footprint on a unit).
type Entry struct {
	Key        string     `json:"-"`
	Name       string     `json:"name"`
	Faction    string     `json:"faction"`
	SpriteKey  string     `json:"sprite_key"`
	FrameCount int        `json:"frame_count"`
	FrameRate  float64    `json:"frame_rate"`
	Footprint  *Footprint `json:"footprint,omitempty"`
	HP         int        `json:"hp"`
	Speed      float64    `json:"speed,omitempty"`
	Weapon     Weapon     `json:"weapon"`
}

// section is which top-level map an Entry was read from.
type section uint8

const (
	sectionUnit section = iota
	sectionBuilding
	sectionInfantry
)

// document is the root JSON shape spec §6 defines.
type document struct {
	Units     map[string]Entry `json:"units"`
	Buildings map[string]Entry `json:"buildings"`
	Infantry  map[string]Entry `json:"infantry"`
}

// Catalog is the loaded, indexed asset catalog. It is immutable after
// Load returns and safe for concurrent read by any system without locking
// (spec §5's "Asset catalog: immutable after load; read by any system").
type Catalog struct {
	entries map[string]Entry
	section map[string]section
	byFact  map[string][]string // faction -> sorted entry keys
}

// Load reads and indexes the catalog JSON at path. Per spec §4.10, a
// missing or malformed catalog is a fatal init error: the runtime cannot
// start without it, so Load returns an error rather than a partial
// catalog for the host to surface and abort on.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Catalog from an in-memory JSON document, exposed
// separately from Load so tests and embedders that don't read from disk
// (e.g. a bundled catalog) can still validate against the same rules.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: malformed JSON: %w", err)
	}

	c := &Catalog{
		entries: make(map[string]Entry),
		section: make(map[string]section),
		byFact:  make(map[string][]string),
	}
	if err := c.index(doc.Units, sectionUnit); err != nil {
		return nil, err
	}
	if err := c.index(doc.Buildings, sectionBuilding); err != nil {
		return nil, err
	}
	if err := c.index(doc.Infantry, sectionInfantry); err != nil {
		return nil, err
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("catalog: no units, buildings, or infantry defined")
	}
	for f := range c.byFact {
		sort.Strings(c.byFact[f])
	}
	return c, nil
}

func (c *Catalog) index(m map[string]Entry, s section) error {
	for key, e := range m {
		if e.SpriteKey == "" {
			return fmt.Errorf("catalog: entry %q missing sprite_key", key)
		}
		if e.FrameCount <= 0 {
			return fmt.Errorf("catalog: entry %q has non-positive frame_count", key)
		}
		e.Key = key
		c.entries[key] = e
		c.section[key] = s
		c.byFact[e.Faction] = append(c.byFact[e.Faction], key)
	}
	return nil
}

// Get returns the entry for key in O(1), or (Entry{}, false) if unknown.
func (c *Catalog) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// IsBuilding reports whether key names a building entry (carries a
// Footprint and an exit-cell-relevant contract).
func (c *Catalog) IsBuilding(key string) bool {
	return c.section[key] == sectionBuilding
}

// Faction returns every entry key belonging to a faction, sorted by key
// across all three sections.
func (c *Catalog) Faction(faction string) []string {
	return c.byFact[faction]
}

// Len returns the total number of indexed entries across all three
// sections.
func (c *Catalog) Len() int { return len(c.entries) }

package hexgame

import (
	"fmt"
	"sort"
)

// Catalog maps ids to unit and terrain kinds.
type Catalog struct {
	units   map[string]*UnitKind
	terrain map[string]*TerrainKind
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		units:   make(map[string]*UnitKind),
		terrain: make(map[string]*TerrainKind),
	}
}

// AddUnit registers kind under kind.ID, replacing any previous entry.
func (c *Catalog) AddUnit(kind *UnitKind) { c.units[kind.ID] = kind }

// AddTerrain registers kind under kind.ID, replacing any previous entry.
func (c *Catalog) AddTerrain(kind *TerrainKind) { c.terrain[kind.ID] = kind }

// Unit looks up a unit kind.
func (c *Catalog) Unit(id string) (*UnitKind, error) {
	k, ok := c.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, id)
	}
	return k, nil
}

// Terrain looks up a terrain kind.
func (c *Catalog) Terrain(id string) (*TerrainKind, error) {
	k, ok := c.terrain[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTerrain, id)
	}
	return k, nil
}

// UnitIDs returns the registered unit ids, sorted.
func (c *Catalog) UnitIDs() []string {
	ids := make([]string, 0, len(c.units))
	for id := range c.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TerrainIDs returns the registered terrain ids, sorted.
func (c *Catalog) TerrainIDs() []string {
	ids := make([]string, 0, len(c.terrain))
	for id := range c.terrain {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Built-in unit kinds.
var (
	Warrior  = &UnitKind{ID: "warrior", Name: "Warrior", Type: Melee, MaxHealth: 100, Movement: 2, MeleeStrength: 8, Cost: 40, Travel: TravelLand}
	Spearman = &UnitKind{ID: "spearman", Name: "Spearman", Type: Melee, MaxHealth: 100, Movement: 2, MeleeStrength: 11, Cost: 56, Travel: TravelLand}
	Archer   = &UnitKind{ID: "archer", Name: "Archer", Type: Ranged, MaxHealth: 100, Movement: 2, MeleeStrength: 5, RangedStrength: 7, Range: 2, Cost: 40, Travel: TravelLand}
	Catapult = &UnitKind{ID: "catapult", Name: "Catapult", Type: Siege, MaxHealth: 100, Movement: 2, MeleeStrength: 7, RangedStrength: 14, Range: 2, Cost: 75, Travel: TravelLand}
	Scout    = &UnitKind{ID: "scout", Name: "Scout", Type: Melee, MaxHealth: 100, Movement: 3, MeleeStrength: 4, Cost: 25, Travel: TravelLand}
	Galley   = &UnitKind{ID: "galley", Name: "Galley", Type: Melee, MaxHealth: 100, Movement: 3, MeleeStrength: 7, Cost: 45, Travel: TravelCoast | TravelOcean}
)

// Built-in terrain kinds. Mountains carry no travel class and block every unit.
var (
	Grassland = &TerrainKind{ID: "grassland", Name: "Grassland", MovementCost: 1, Travel: TravelLand}
	Plains    = &TerrainKind{ID: "plains", Name: "Plains", MovementCost: 1, Travel: TravelLand}
	Hills     = &TerrainKind{ID: "hills", Name: "Hills", MovementCost: 2, DefenseBonus: 3, Travel: TravelLand}
	Forest    = &TerrainKind{ID: "forest", Name: "Forest", MovementCost: 2, DefenseBonus: 2, Travel: TravelLand}
	Marsh     = &TerrainKind{ID: "marsh", Name: "Marsh", MovementCost: 2, DefenseBonus: -1, Travel: TravelLand}
	Coast     = &TerrainKind{ID: "coast", Name: "Coast", MovementCost: 1, Travel: TravelCoast}
	Ocean     = &TerrainKind{ID: "ocean", Name: "Ocean", MovementCost: 1, Travel: TravelOcean}
	Mountain  = &TerrainKind{ID: "mountain", Name: "Mountain", MovementCost: 3, DefenseBonus: 5}
)

// DefaultCatalog returns a catalog holding the built-in kinds.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, k := range []*UnitKind{Warrior, Spearman, Archer, Catapult, Scout, Galley} {
		c.AddUnit(k)
	}
	for _, t := range []*TerrainKind{Grassland, Plains, Hills, Forest, Marsh, Coast, Ocean, Mountain} {
		c.AddTerrain(t)
	}
	return c
}

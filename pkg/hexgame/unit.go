package hexgame

import "fmt"

// Civilization is a faction owning units. Civilizations are shared by pointer
// and compared by identity; two civilizations with the same name are distinct.
type Civilization struct {
	Name  string
	Color string
}

// WinnerName returns the civilization's name, or "" for a nil winner (a draw).
func WinnerName(c *Civilization) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func (c *Civilization) String() string {
	if c == nil {
		return "<none>"
	}
	return c.Name
}

// UnitType is the combat role of a unit kind.
type UnitType int

const (
	Melee UnitType = iota
	Ranged
	Siege
)

func (t UnitType) String() string {
	switch t {
	case Ranged:
		return "ranged"
	case Siege:
		return "siege"
	default:
		return "melee"
	}
}

// Travel is a set of terrain traversal classes.
type Travel uint8

const (
	TravelLand Travel = 1 << iota
	TravelCoast
	TravelOcean
)

// Allows reports whether every class in other is present in t.
func (t Travel) Allows(other Travel) bool {
	return other != 0 && t&other == other
}

// UnitKind is the immutable stat template shared by all units of a kind.
type UnitKind struct {
	ID             string
	Name           string
	Type           UnitType
	MaxHealth      int
	Movement       int
	MeleeStrength  int
	RangedStrength int
	Range          int
	Cost           int
	Travel         Travel
}

// UnitState is the activity state of a unit between turns.
type UnitState int

const (
	Ready UnitState = iota
	Resting
	Fortified
)

func (s UnitState) String() string {
	switch s {
	case Resting:
		return "resting"
	case Fortified:
		return "fortified"
	default:
		return "ready"
	}
}

func (s UnitState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *UnitState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ready", "":
		*s = Ready
	case "resting":
		*s = Resting
	case "fortified":
		*s = Fortified
	default:
		return fmt.Errorf("unknown unit state %q", b)
	}
	return nil
}

// Unit is a live unit on the board. Values handed out by the store are copies;
// write changes back with Store.Update.
type Unit struct {
	ID        int
	Kind      *UnitKind
	Civ       *Civilization
	Position  Position
	Health    int
	MovesLeft int
	State     UnitState
}

// HealthFraction returns current health divided by max health.
func (u Unit) HealthFraction() float64 {
	if u.Kind == nil || u.Kind.MaxHealth <= 0 {
		return 0
	}
	return float64(u.Health) / float64(u.Kind.MaxHealth)
}

// CanAct returns true if the unit has moves left and is not resting or fortified.
func (u Unit) CanAct() bool {
	return u.MovesLeft > 0 && u.State == Ready
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

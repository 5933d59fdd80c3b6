package hexgame

import "fmt"

// Position is an offset coordinate on the hex grid. Odd rows are shifted right
// by half a tile, so adjacency depends on the parity of Y.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Bounds reports whether a position lies on the playable board.
type Bounds interface {
	InBounds(pos Position) bool
}

// Neighbor offsets indexed by row parity (0 = even row, 1 = odd row).
// The order is fixed: E, NE, NW, W, SW, SE. Callers that break ties by
// enumeration order rely on it.
var neighborOffsets = [2][6]Position{
	{{1, 0}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}},
	{{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {0, 1}, {1, 1}},
}

// parity returns 0 for even rows and 1 for odd rows, including negative rows.
func parity(y int) int {
	return y & 1
}

// Neighbors returns the six tiles adjacent to pos.
func Neighbors(pos Position) [6]Position {
	var out [6]Position
	for i, off := range neighborOffsets[parity(pos.Y)] {
		out[i] = Position{X: pos.X + off.X, Y: pos.Y + off.Y}
	}
	return out
}

// IsAdjacent returns true if b is one of the six neighbors of a.
func IsAdjacent(a, b Position) bool {
	for _, n := range Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}

// cube holds the cube coordinates of an offset position (x+y+z == 0).
type cube struct {
	x, y, z int
}

func toCube(p Position) cube {
	x := p.X - (p.Y-parity(p.Y))/2
	z := p.Y
	return cube{x: x, y: -x - z, z: z}
}

// Distance returns the number of hex steps between a and b.
func Distance(a, b Position) int {
	ca, cb := toCube(a), toCube(b)
	return (abs(ca.x-cb.x) + abs(ca.y-cb.y) + abs(ca.z-cb.z)) / 2
}

// CandidateMoves returns the in-bounds neighbors of pos in neighbor table order.
// The movement budget is accepted for signature compatibility with cost-aware
// movement but is not consulted: only the six immediate neighbors are returned.
// Use Reachable for multi-step movement. A nil bounds accepts every tile.
func CandidateMoves(pos Position, budget int, bounds Bounds) []Position {
	_ = budget
	out := make([]Position, 0, 6)
	for _, n := range Neighbors(pos) {
		if bounds != nil && !bounds.InBounds(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// CostFunc returns the cost of entering pos and whether it may be entered at all.
type CostFunc func(pos Position) (cost int, ok bool)

// Reachable returns every tile reachable from start within budget, mapped to the
// cheapest total cost of getting there. The start tile is not included.
// Tiles with non-positive cost are treated as costing 1.
func Reachable(start Position, budget int, bounds Bounds, cost CostFunc) map[Position]int {
	best := map[Position]int{start: 0}
	queue := []Position{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		spent := best[cur]
		for _, n := range Neighbors(cur) {
			if bounds != nil && !bounds.InBounds(n) {
				continue
			}
			c, ok := cost(n)
			if !ok {
				continue
			}
			if c < 1 {
				c = 1
			}
			total := spent + c
			if total > budget {
				continue
			}
			if prev, seen := best[n]; seen && prev <= total {
				continue
			}
			best[n] = total
			queue = append(queue, n)
		}
	}
	delete(best, start)
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package hexgame

// TerrainKind describes a terrain type. Terrain is data consumed by movement
// validation, combat and the AI; it never changes during a game.
type TerrainKind struct {
	ID           string
	Name         string
	MovementCost int
	DefenseBonus int
	AttackBonus  int
	Travel       Travel
}

// Terrain is the board view the core consumes: tile lookup plus bounds.
type Terrain interface {
	Bounds
	TerrainAt(pos Position) (*TerrainKind, bool)
}

// Board is a rectangular Width x Height terrain map with origin (0,0).
type Board struct {
	Width  int
	Height int
	tiles  map[Position]*TerrainKind
}

// NewBoard creates an empty board. Tiles without terrain are in bounds but
// report no terrain, which the store treats as impassable.
func NewBoard(width, height int) *Board {
	return &Board{
		Width:  width,
		Height: height,
		tiles:  make(map[Position]*TerrainKind, width*height),
	}
}

// InBounds returns true if pos lies inside the rectangle.
func (b *Board) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X < b.Width && pos.Y < b.Height
}

// TerrainAt returns the terrain at pos, if any.
func (b *Board) TerrainAt(pos Position) (*TerrainKind, bool) {
	t, ok := b.tiles[pos]
	return t, ok && t != nil
}

// SetTerrain assigns terrain to a tile. Out-of-bounds positions are rejected.
func (b *Board) SetTerrain(pos Position, kind *TerrainKind) error {
	if !b.InBounds(pos) {
		return &PositionError{Pos: pos, Err: ErrOutOfBounds}
	}
	if kind == nil {
		delete(b.tiles, pos)
		return nil
	}
	b.tiles[pos] = kind
	return nil
}

// Fill assigns kind to every tile on the board.
func (b *Board) Fill(kind *TerrainKind) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			b.tiles[Position{X: x, Y: y}] = kind
		}
	}
}

// Positions returns every in-bounds position in row-major order.
func (b *Board) Positions() []Position {
	out := make([]Position, 0, b.Width*b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}

package world

import (
	"math"
	"slices"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/host"
)

// DefaultCellSize is in world units.
const DefaultCellSize = 200.0

type cellKey struct {
	cx int32
	cy int32
}

// Grid buckets actors into square cells on the horizontal (X/Y) plane so
// proximity queries only scan nearby cells. Height is ignored at this level;
// callers filter by true distance.
// Accessed only from the simulation goroutine, no locks.
type Grid struct {
	size  float64
	cells map[cellKey]map[ecs.EntityID]struct{}
	at    map[ecs.EntityID]cellKey
}

// NewGrid returns an empty grid. size <= 0 selects DefaultCellSize.
func NewGrid(size float64) *Grid {
	if size <= 0 {
		size = DefaultCellSize
	}
	return &Grid{
		size:  size,
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
		at:    make(map[ecs.EntityID]cellKey),
	}
}

func (g *Grid) coord(v float64) int32 {
	return int32(math.Floor(v / g.size))
}

func (g *Grid) key(loc host.Vec3) cellKey {
	return cellKey{cx: g.coord(loc.X), cy: g.coord(loc.Y)}
}

// Add places id at loc, moving it if it is already in the grid.
func (g *Grid) Add(id ecs.EntityID, loc host.Vec3) {
	if _, ok := g.at[id]; ok {
		g.Move(id, loc)
		return
	}
	k := g.key(loc)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.at[id] = k
}

// Remove takes id out of the grid.
func (g *Grid) Remove(id ecs.EntityID) {
	k, ok := g.at[id]
	if !ok {
		return
	}
	delete(g.at, id)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates id's cell when its position changes.
func (g *Grid) Move(id ecs.EntityID, loc host.Vec3) {
	oldK, ok := g.at[id]
	if !ok {
		return
	}
	if g.key(loc) == oldK {
		return
	}
	g.Remove(id)
	g.Add(id, loc)
}

// Len returns the number of tracked ids.
func (g *Grid) Len() int { return len(g.at) }

// Nearby returns, in id order, every id in a cell touched by the square of
// half-width radius around loc. Caller does fine-grained distance filtering.
func (g *Grid) Nearby(loc host.Vec3, radius float64) []ecs.EntityID {
	radius = math.Max(radius, 0)
	x0, x1 := g.coord(loc.X-radius), g.coord(loc.X+radius)
	y0, y1 := g.coord(loc.Y-radius), g.coord(loc.Y+radius)
	var result []ecs.EntityID
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				result = append(result, id)
			}
		}
	}
	slices.Sort(result)
	return result
}

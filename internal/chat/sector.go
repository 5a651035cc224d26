package chat

import "sync"

// cell is one sector's membership set plus its own lock — the innermost
// level of the lock hierarchy. Cells are locked in
// ascending rank order (rank = y*SectorWidthAndHeight+x) whenever more than
// one is held at once, and released in descending order, matching the
// original's hand-unrolled neighbor locking.
type cell struct {
	mu      sync.RWMutex
	members map[uint64]struct{}
}

// SectorGrid is the SectorWidthAndHeight x SectorWidthAndHeight grid of
// session-id sets. Each cell has its own lock so that moves and
// broadcasts in disjoint regions of the map never contend.
type SectorGrid struct {
	cells [SectorWidthAndHeight][SectorWidthAndHeight]cell
}

// NewSectorGrid returns an empty grid with every cell's set initialized.
func NewSectorGrid() *SectorGrid {
	g := &SectorGrid{}
	for y := 0; y < SectorWidthAndHeight; y++ {
		for x := 0; x < SectorWidthAndHeight; x++ {
			g.cells[y][x].members = make(map[uint64]struct{})
		}
	}
	return g
}

// InBounds reports whether (x, y) is a valid sector coordinate.
func InBounds(x, y uint16) bool {
	return x < SectorWidthAndHeight && y < SectorWidthAndHeight
}

func rank(x, y uint16) int {
	return int(y)*SectorWidthAndHeight + int(x)
}

// Insert adds sessionID to cell (x, y) under that cell's exclusive lock.
// Used when a player enters the grid with no prior cell to vacate.
func (g *SectorGrid) Insert(x, y uint16, sessionID uint64) {
	c := &g.cells[y][x]
	c.mu.Lock()
	c.members[sessionID] = struct{}{}
	c.mu.Unlock()
}

// Erase removes sessionID from cell (x, y) under that cell's exclusive lock.
func (g *SectorGrid) Erase(x, y uint16, sessionID uint64) {
	c := &g.cells[y][x]
	c.mu.Lock()
	delete(c.members, sessionID)
	c.mu.Unlock()
}

// Move transfers sessionID from (fromX, fromY) to (toX, toY), acquiring
// both cells' exclusive locks in ascending rank order and releasing in
// descending order, so that two players swapping cells in opposite
// directions can never deadlock against each other. If the two
// coordinates name the same cell, Move returns without taking any lock.
func (g *SectorGrid) Move(fromX, fromY, toX, toY uint16, sessionID uint64) {
	fromRank := rank(fromX, fromY)
	toRank := rank(toX, toY)

	if fromRank == toRank {
		return
	}

	from := &g.cells[fromY][fromX]
	to := &g.cells[toY][toX]

	if fromRank < toRank {
		from.mu.Lock()
		to.mu.Lock()
	} else {
		to.mu.Lock()
		from.mu.Lock()
	}

	delete(from.members, sessionID)
	to.members[sessionID] = struct{}{}

	if fromRank < toRank {
		to.mu.Unlock()
		from.mu.Unlock()
	} else {
		from.mu.Unlock()
		to.mu.Unlock()
	}
}

// Neighborhood returns every session id present in the 3x3 block of cells
// centered on (x, y), clipped to the grid's bounds at the edges. It
// acquires each in-bounds cell's shared lock in ascending rank order,
// collects members, then releases in descending order — mirroring the
// original's nine-branch read-locked neighbor walk. All locks are
// released before this function returns; the caller must not hold any
// sector lock while sending to the collected ids.
func (g *SectorGrid) Neighborhood(x, y uint16) []uint64 {
	type coord struct{ x, y uint16 }
	var coords []coord
	for dy := -1; dy <= 1; dy++ {
		ny := int(y) + dy
		if ny < 0 || ny >= SectorWidthAndHeight {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := int(x) + dx
			if nx < 0 || nx >= SectorWidthAndHeight {
				continue
			}
			coords = append(coords, coord{uint16(nx), uint16(ny)})
		}
	}

	// Sort the up-to-9 coordinates by ascending rank for lock ordering.
	for i := 1; i < len(coords); i++ {
		for j := i; j > 0 && rank(coords[j].x, coords[j].y) < rank(coords[j-1].x, coords[j-1].y); j-- {
			coords[j], coords[j-1] = coords[j-1], coords[j]
		}
	}

	for _, c := range coords {
		g.cells[c.y][c.x].mu.RLock()
	}

	var ids []uint64
	for _, c := range coords {
		cc := &g.cells[c.y][c.x]
		for id := range cc.members {
			ids = append(ids, id)
		}
	}

	for i := len(coords) - 1; i >= 0; i-- {
		c := coords[i]
		g.cells[c.y][c.x].mu.RUnlock()
	}

	return ids
}

// CellSize returns the current membership count of cell (x, y), for
// metrics sampling.
func (g *SectorGrid) CellSize(x, y uint16) int {
	c := &g.cells[y][x]
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// OccupiedCells returns the number of cells with at least one member, for
// metrics sampling. It takes each cell's lock independently rather than
// any global lock, so the result is a best-effort snapshot, never an
// atomic one.
func (g *SectorGrid) OccupiedCells() int {
	n := 0
	for y := 0; y < SectorWidthAndHeight; y++ {
		for x := 0; x < SectorWidthAndHeight; x++ {
			if g.CellSize(uint16(x), uint16(y)) > 0 {
				n++
			}
		}
	}
	return n
}

package occupancy

import "sync"

// SharedGrid guards a Grid for use from several goroutines. Scan updates take the write
// lock for their whole duration so readers never observe a half-applied scan.
type SharedGrid struct {
	mu   sync.RWMutex
	grid *Grid
}

// NewSharedGrid wraps grid. The caller must not touch grid directly afterwards.
func NewSharedGrid(grid *Grid) *SharedGrid {
	return &SharedGrid{grid: grid}
}

// Mutate runs mutator with exclusive access to the grid.
func (sg *SharedGrid) Mutate(mutator func(g *Grid) error) error {
	sg.mu.Lock()
	defer sg.mu.Unlock()
	return mutator(sg.grid)
}

// View runs viewer with shared read access to the grid. viewer must not modify it.
func (sg *SharedGrid) View(viewer func(g *Grid) error) error {
	sg.mu.RLock()
	defer sg.mu.RUnlock()
	return viewer(sg.grid)
}

// Snapshot returns a copy of the grid as of now.
func (sg *SharedGrid) Snapshot() *Grid {
	sg.mu.RLock()
	defer sg.mu.RUnlock()
	return sg.grid.Clone()
}

package chartjs

import (
	"slices"
	"sync"
)

// Component is a Chart.js controller, element or plugin that has to be passed
// to Chart.register before a chart using it can be drawn.
type Component string

const (
	PieController Component = "PieController"
	ArcElement    Component = "ArcElement"
	Tooltip       Component = "Tooltip"
	Legend        Component = "Legend"
	Title         Component = "Title"
)

var registry = struct {
	mu    sync.RWMutex
	order []Component
	seen  map[Component]bool
}{seen: make(map[Component]bool)}

// Register adds components to the process wide registry. Components already
// registered are ignored, the ones actually added are returned.
func Register(components ...Component) []Component {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	var added []Component
	for _, c := range components {
		if registry.seen[c] {
			continue
		}
		registry.seen[c] = true
		registry.order = append(registry.order, c)
		added = append(added, c)
	}
	return added
}

// Registered returns the registered components in registration order.
func Registered() []Component {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return slices.Clone(registry.order)
}

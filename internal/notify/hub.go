package notify

// BuildSnapshot produces a fresh Snapshot from current registry/
// enablement/selection state. Supplied by core.Core, which owns all of
// that state; notify only knows how to publish the result.
type BuildSnapshot func() Snapshot

// Hub holds the two coalescing alerts clients subscribe to, sharing one
// prepare hook that refreshes the published snapshot.
type Hub struct {
	NodesChanged      *Alert
	ActiveNodeChanged *Alert
	Snapshot          *Store
}

// NewHub wires both alerts to the same snapshot refresh.
func NewHub(build BuildSnapshot) *Hub {
	store := NewStore()
	prepare := func() {
		store.UpdateBegin()
		store.UpdateComplete(build())
	}
	return &Hub{
		NodesChanged:      NewAlert(prepare),
		ActiveNodeChanged: NewAlert(prepare),
		Snapshot:          store,
	}
}

// Flush dispatches both alerts. Call once at the end of every public
// Core entry point that may have mutated device/node/selection state.
func (h *Hub) Flush() {
	h.NodesChanged.Dispatch()
	h.ActiveNodeChanged.Dispatch()
}

// Package notify implements the Notification Hub: the
// two coalescing alerts (nodes_changed, active_node_changed) and the
// cross-thread published device/node snapshot.
package notify

import "sync"

// Callback is a subscriber invoked on alert dispatch.
type Callback func()

// Handle is an opaque subscription handle returned by Subscribe.
type Handle uint64

// Alert coalesces repeated "something changed" signals: any number of
// Pending calls before the next Dispatch collapse into exactly one
// prepare-then-notify pass ("N pendings between dispatches produce
// exactly one dispatch").
type Alert struct {
	mu      sync.Mutex
	prepare func()
	subs    map[Handle]Callback
	nextID  Handle
	pending bool
}

// NewAlert returns an Alert whose prepare hook runs once per Dispatch,
// before any subscriber is invoked.
func NewAlert(prepare func()) *Alert {
	return &Alert{prepare: prepare, subs: make(map[Handle]Callback)}
}

// Subscribe registers cb and returns a token for Unsubscribe.
func (a *Alert) Subscribe(cb Callback) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.subs[id] = cb
	return id
}

// Unsubscribe removes a previously registered callback. No-op if id is
// unknown (already removed).
func (a *Alert) Unsubscribe(id Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subs, id)
}

// Pending marks the alert as having something to dispatch. Calling it
// any number of times before Dispatch runs produces exactly one
// dispatch.
func (a *Alert) Pending() {
	a.mu.Lock()
	a.pending = true
	a.mu.Unlock()
}

// Dispatch runs the prepare hook once and then every subscriber, but
// only if Pending was called since the last Dispatch. Called by the
// control thread at the end of each public entry point that may have
// changed observable state.
func (a *Alert) Dispatch() {
	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	subs := make([]Callback, 0, len(a.subs))
	for _, cb := range a.subs {
		subs = append(subs, cb)
	}
	a.mu.Unlock()

	if a.prepare != nil {
		a.prepare()
	}
	for _, cb := range subs {
		cb()
	}
}

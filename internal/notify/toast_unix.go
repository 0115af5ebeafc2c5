//go:build !windows

package notify

import "log"

// ToastOnNodesChanged is a no-op on platforms with no toast backend; it
// still subscribes, so callers get a real Handle to Unsubscribe, and
// logs instead of popping a visible notification.
func ToastOnNodesChanged(hub *Hub, title string) Handle {
	return hub.NodesChanged.Subscribe(func() {
		log.Printf("notify: %s: audio device list changed (no toast backend on this platform)", title)
	})
}

//go:build windows

package notify

import (
	"log"

	"github.com/go-toast/toast"
)

// ToastOnNodesChanged subscribes to hub's NodesChanged alert and pops a
// Windows toast notification every time it fires, a concrete
// subscriber demonstrating the Notification Hub outside this process.
// Returns the Handle so the caller can Unsubscribe later.
func ToastOnNodesChanged(hub *Hub, title string) Handle {
	return hub.NodesChanged.Subscribe(func() {
		showToast(title, "Audio device list changed")
	})
}

func showToast(title, message string) {
	notification := toast.Notification{
		AppID:   "crasd",
		Title:   title,
		Message: message,
	}
	if err := notification.Push(); err != nil {
		log.Printf("notify: toast push failed: %v", err)
	}
}

// Command crasctl is a tiny tray-icon status client for crasd: it polls
// the control socket's published Snapshot and renders enabled device
// counts in the tray tooltip, a read-only consumer of the Notification
// Hub's published state over the same systray.Run/onReady/menu-click
// loop crasd's sibling tray tools use.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/getlantern/systray"
	flag "github.com/spf13/pflag"

	"github.com/crasgo/crasd/internal/notify"
)

type wireSnapshot struct {
	notify.Snapshot
	Suspended bool `json:"suspended"`
}

func main() {
	sockPath := flag.String("socket", "/run/crasd.sock", "crasd control socket to poll")
	interval := flag.Duration("poll-interval", 2*time.Second, "how often to poll the control socket")
	flag.Parse()

	systray.Run(func() { onReady(*sockPath, *interval) }, func() {})
}

func onReady(sockPath string, interval time.Duration) {
	systray.SetTitle("crasctl")
	systray.SetTooltip("crasd status")

	menuQuit := systray.AddMenuItem("Quit", "Exit crasctl")

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			refresh(sockPath)
		}
	}()
	refresh(sockPath)

	go func() {
		<-menuQuit.ClickedCh
		ticker.Stop()
		systray.Quit()
	}()
}

func refresh(sockPath string) {
	snap, err := fetchSnapshot(sockPath)
	if err != nil {
		systray.SetTooltip(fmt.Sprintf("crasd unreachable: %v", err))
		log.Printf("crasctl: %v", err)
		return
	}

	tooltip := fmt.Sprintf("outputs: %d, inputs: %d", snap.Output.DeviceCount, snap.Input.DeviceCount)
	if snap.Suspended {
		tooltip += " (suspended)"
	}
	systray.SetTooltip(tooltip)
	systray.SetTitle(fmt.Sprintf("%d/%d", snap.Output.DeviceCount, snap.Input.DeviceCount))
}

func fetchSnapshot(sockPath string) (*wireSnapshot, error) {
	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", sockPath, err)
	}
	defer conn.Close()

	var snap wireSnapshot
	if err := json.NewDecoder(conn).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

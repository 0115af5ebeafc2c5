package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/crasgo/crasd/internal/cardconfig"
	"github.com/crasgo/crasd/internal/config"
	"github.com/crasgo/crasd/internal/core"
	"github.com/crasgo/crasd/internal/ctlsock"
	"github.com/crasgo/crasd/internal/hwdev"
	"github.com/crasgo/crasd/internal/iodev"
	"github.com/crasgo/crasd/internal/timersvc"
	"github.com/crasgo/crasd/internal/worker"
)

func main() {
	configPath := flag.String("config", "crasd.json", "path to the daemon configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("crasd: loading config %s: %v", *configPath, err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	log.Printf("crasd starting (config=%s, log_level=%s, control_socket=%s)", *configPath, cfg.LogLevel, cfg.ControlSocket)

	for _, c := range cfg.Cards {
		if c.Disabled {
			log.Printf("crasd: card %q disabled in config, skipping", c.Name)
			continue
		}
		desc, err := cardconfig.Load(c.DescriptorPath)
		if err != nil {
			log.Printf("crasd: card %q descriptor: %v", c.Name, err)
			continue
		}
		log.Printf("crasd: card %q configured (volume_curve=%s)", c.Name, desc.VolumeCurve)
	}

	w := worker.NewFake()
	events := newSysstateEvents(5 * time.Second)
	crasCore := core.New(w, emptyStreamList{}, timersvc.NewReal(), nil, events)
	events.Run()
	defer events.Stop()
	defer crasCore.Deinit()

	enumerator := hwdev.New()
	defer enumerator.Close()
	probeAndAdd(crasCore, enumerator)

	hotplug := enumerator.Watch()
	stop := make(chan struct{})
	go watchHotplug(crasCore, enumerator, hotplug, stop)
	defer close(stop)

	srv, err := ctlsock.Listen(cfg.ControlSocket, crasCore)
	if err != nil {
		log.Printf("crasd: control socket %s unavailable: %v", cfg.ControlSocket, err)
	} else {
		go srv.Serve()
		defer srv.Close()
		log.Printf("crasd: control socket listening at %s", cfg.ControlSocket)
	}

	waitForSignal()
	log.Println("crasd: shutting down")
}

func probeAndAdd(c *core.Core, enumerator hwdev.Enumerator) {
	for _, dir := range []iodev.Direction{iodev.Output, iodev.Input} {
		devices, err := enumerator.Probe(dir)
		if err != nil {
			log.Printf("crasd: probing %v devices: %v", dir, err)
			continue
		}
		for _, dev := range devices {
			addDevice(c, dir, dev)
		}
	}
}

func addDevice(c *core.Core, dir iodev.Direction, dev *iodev.Device) {
	var err error
	if dir == iodev.Output {
		err = c.AddOutput(dev)
	} else {
		err = c.AddInput(dev)
	}
	if err != nil {
		log.Printf("crasd: adding %v device %q: %v", dir, dev.Info.Name, err)
		return
	}
	log.Printf("crasd: added %v device %q (index %d)", dir, dev.Info.Name, dev.Index)
}

// watchHotplug re-probes on every hotplug signal, adding any device
// whose StableID isn't already registered. It never removes: matching a
// vanished hardware endpoint back to its registered Device index is a
// fuller hotplug protocol than this reference wiring implements.
func watchHotplug(c *core.Core, enumerator hwdev.Enumerator, signals <-chan struct{}, stop <-chan struct{}) {
	if signals == nil {
		return
	}
	known := map[string]bool{}
	for _, info := range c.GetOutputs() {
		known[info.StableID] = true
	}
	for _, info := range c.GetInputs() {
		known[info.StableID] = true
	}
	for {
		select {
		case <-stop:
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			for _, dir := range []iodev.Direction{iodev.Output, iodev.Input} {
				devices, err := enumerator.Probe(dir)
				if err != nil {
					log.Printf("crasd: hotplug re-probe %v: %v", dir, err)
					continue
				}
				for _, dev := range devices {
					if known[dev.Info.StableID] {
						continue
					}
					known[dev.Info.StableID] = true
					addDevice(c, dir, dev)
				}
			}
		}
	}
}

func waitForSignal() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
}

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gekko3d/island/sim"
	"gopkg.in/yaml.v3"
)

// loadSimConfig reads the sim section of an island config file over the defaults.
func loadSimConfig(path string) (sim.Config, error) {
	file := struct {
		Sim sim.Config `yaml:"sim"`
	}{Sim: sim.DefaultConfig()}
	if path == "" {
		return file.Sim, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return sim.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return file.Sim, nil
}

func run(screen tcell.Screen, v *viewer) {
	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if v.handleKey(ev, time.Now()) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case now := <-ticker.C:
			v.step(now)
			v.draw(screen, now)
		}
	}
}

func main() {
	configPath := flag.String("config", "", "YAML config file; only the sim section is read")
	seed := flag.Int64("seed", 0, "smoke random seed, 0 seeds from the clock")
	flag.Parse()

	cfg, err := loadSimConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	updater, err := sim.NewUpdater(cfg, rand.New(rand.NewSource(*seed)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	run(screen, newViewer(updater, time.Now()))
}

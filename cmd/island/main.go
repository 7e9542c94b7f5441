package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	island "github.com/gekko3d/island"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file overlaid on the defaults")
	assetDir := flag.String("assets", "", "directory holding the prop .vox and .mat.yaml files")
	debug := flag.Bool("debug", false, "enable debug logging and the HUD debug line")
	mute := flag.Bool("mute", false, "start without ambient audio")
	flag.Parse()

	cfg, err := island.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *assetDir != "" {
		cfg.AssetDir = *assetDir
	}
	if *debug {
		cfg.Debug = true
	}
	if *mute {
		cfg.Audio.Enabled = false
	}

	app := island.NewAppBuilder().
		UseStates(island.StateRunning, island.StateClosing).
		UseModules(
			island.LoggingModule{Prefix: "island", Debug: cfg.Debug},
			island.TimeModule{},
			island.NewPlatformWindow(cfg.Window),
			island.InputModule{},
			island.FrameModule{Config: cfg.Sim},
			island.PointerLockModule{},
			island.SceneModule{Scene: island.IslandScene(cfg.Sim.CameraStart)},
			island.AssetsModule{Dir: cfg.AssetDir},
			island.HUDModule{ShowDebug: cfg.Debug},
			island.RendererModule{},
			island.AudioModule{Enabled: cfg.Audio.Enabled, Volume: cfg.Audio.Volume},
		).
		Build()

	app.Run()
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/AaronLay10/SentientBlocks/internal/config"
	"github.com/AaronLay10/SentientBlocks/internal/scheduler"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
	"github.com/AaronLay10/SentientBlocks/internal/tui"
)

// stagetui plays a project in the terminal without any network services.
func main() {
	cfgPath := "config/stage.yaml"
	if v := os.Getenv("SENTIENT_STAGE_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadStageConfig(cfgPath)
	if err != nil {
		log.Fatalf("failed to load %s: %v", cfgPath, err)
	}

	projectPath := cfg.Runtime.Project
	if len(os.Args) > 1 {
		projectPath = os.Args[1]
	}

	store := stage.NewStore(cfg.SpriteCatalog())
	if projectPath != "" {
		project, err := stage.LoadProject(projectPath)
		if err != nil {
			log.Fatalf("failed to load project: %v", err)
		}
		if err := store.Load(project.Sprites); err != nil {
			log.Fatalf("invalid project: %v", err)
		}
	}
	sched := scheduler.New(store, scheduler.Options{Collisions: cfg.CollisionsEnabled()})

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("failed to init screen: %v", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	width, height := cfg.StageSize()
	tui.NewApp(screen, store, sched, cfg.StageID(), width, height).Run(ctx, cfg.TickInterval())
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronLay10/SentientBlocks/internal/api"
	"github.com/AaronLay10/SentientBlocks/internal/config"
	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/mqtt"
	"github.com/AaronLay10/SentientBlocks/internal/scheduler"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
	"github.com/AaronLay10/SentientBlocks/internal/storage/postgres"
	"github.com/AaronLay10/SentientBlocks/internal/version"
)

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// logEvent emits a domain event and mirrors it to stdout as a JSON line.
func logEvent(level, event, msg string, fields map[string]interface{}) {
	b, err := events.Emit(level, event, msg, fields)
	if err != nil {
		log.Printf("emit %s: %v", event, err)
		return
	}
	fmt.Println(string(b))
}

func main() {
	cfgPath := getEnv("SENTIENT_STAGE_CONFIG", "config/stage.yaml")
	cfg, err := config.LoadStageConfig(cfgPath)
	if err != nil {
		log.Fatalf("failed to load %s: %v", cfgPath, err)
	}
	stageID := cfg.StageID()
	width, height := cfg.StageSize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "stage starting", map[string]interface{}{
		"service":  "stage",
		"stage_id": stageID,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
	})

	store := stage.NewStore(cfg.SpriteCatalog())
	stage.TrackSessions(store)
	sched := scheduler.New(store, scheduler.Options{Collisions: cfg.CollisionsEnabled()})
	queue := stage.NewQueue()

	pg := startPostgres(ctx, stageID)
	if !restoreStage(store, pg, stageID) {
		loadProject(store, cfg.Runtime.Project)
	}

	mqttClient := startMQTT(ctx, queue, stageID)

	if err := api.InitAuth(); err != nil {
		log.Fatalf("failed to init auth: %v", err)
	}
	if !api.IsAuthEnabled() {
		log.Printf("api: no admin credentials configured, mutating routes are open")
	}
	api.InitTLS()
	api.InitMetrics()
	api.InitAlerts()
	api.SetStageID(stageID)
	api.SetStageSize(width, height)
	api.SetStage(store, queue)
	api.SetStatsSource(sched.Stats)
	api.Start(cfg.UIPort())
	api.StartAlertMonitor(ctx, 10*time.Second)

	api.SetRuntimeReady(true)
	sched.Run(ctx, cfg.TickInterval(), queue)
	api.SetRuntimeReady(false)

	logEvent("info", "system.shutdown", "stage stopping", map[string]interface{}{
		"stage_id": stageID,
		"ticks":    sched.Stats().Ticks,
	})
	events.CloseAllSubscribers()

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if pg != nil {
		events.SetAppender(nil)
		if err := pg.Close(); err != nil {
			log.Printf("postgres: close: %v", err)
		}
	}
}

// startPostgres connects the event log. The service runs without
// persistence when the database is unreachable.
func startPostgres(ctx context.Context, stageID string) *postgres.Client {
	pg, err := postgres.New(stageID)
	if err != nil {
		log.Printf("postgres unavailable, events will not be persisted: %v", err)
		api.SetPostgresState(false, true)
		return nil
	}

	events.SetAppender(pg)
	api.SetEventQuerier(pg)
	api.SetPostgresState(true, false)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				api.SetPostgresState(pg.Ping() == nil, false)
			}
		}
	}()
	return pg
}

// restoreStage replays the persisted log into store. It returns false when
// there was nothing to restore.
func restoreStage(store *stage.Store, pg *postgres.Client, stageID string) bool {
	if pg == nil {
		return false
	}

	restored, replayed, err := stage.RestoreFromEvents(pg, stage.DefaultRestoreLimit)
	if err != nil {
		log.Printf("restore failed, starting from project: %v", err)
		return false
	}
	if restored == nil {
		return false
	}
	if err := stage.ApplyRestoredState(store, restored); err != nil {
		log.Printf("restored stage rejected, starting from project: %v", err)
		return false
	}

	stage.EmitStartupRestore(replayed, stageID)
	log.Printf("restored %d sprites from %d events", len(restored.Sprites), replayed)
	return true
}

func loadProject(store *stage.Store, path string) {
	if path == "" {
		return
	}
	project, err := stage.LoadProject(path)
	if err != nil {
		log.Printf("project %s not loaded: %v", path, err)
		return
	}
	if err := store.Load(project.Sprites); err != nil {
		log.Printf("project %s rejected: %v", path, err)
		return
	}
	log.Printf("loaded %d sprites from %s", len(project.Sprites), path)
}

// startMQTT bridges the stage to the broker when MQTT_URL is set.
func startMQTT(ctx context.Context, queue *stage.Queue, stageID string) *mqtt.Client {
	if os.Getenv("MQTT_URL") == "" {
		api.SetMQTTState(false, true)
		return nil
	}

	client := mqtt.NewClient("sentient-stage-" + stageID)
	sub := mqtt.NewIntentSubscriber(client, queue, stageID)

	client.OnConnect(func() {
		if err := sub.Subscribe(); err != nil {
			log.Printf("mqtt: subscribe %s: %v", mqtt.IntentTopic(stageID), err)
			return
		}
		api.SetMQTTState(true, false)
	})
	client.OnConnectionLost(func(error) {
		sub.ClearSubscriptions()
		api.SetMQTTState(false, false)
	})

	api.SetMQTTState(false, false)
	client.Start()

	go mqtt.NewStatePublisher(client, stageID).Run(ctx)
	return client
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/abroun/paddlesync/internal/pkg/billing"
	"github.com/abroun/paddlesync/internal/pkg/cache"
	"github.com/abroun/paddlesync/internal/pkg/database"
	"github.com/abroun/paddlesync/internal/pkg/env"
	"github.com/abroun/paddlesync/internal/pkg/paddle"
)

const replayLockKey = "paddlesync:replay:lock"
const replayLockTTL = time.Hour

// Pulls events not yet replayed from the Paddle webhook history and replays
// them through the reconciler. Exits nonzero on the first failure so the
// resume checkpoint can never advance past a gap.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cfg := billing.ConfigFromEnv()
	billing.Setup(cfg)

	locked := false
	if cache.Enabled() {
		ok, err := cache.AcquireLock(replayLockKey, replayLockTTL)
		if err != nil {
			log.Printf("warning: replay lock unavailable, continuing without it: %v", err)
		} else if !ok {
			log.Println("another replay run holds the lock, exiting")
			os.Exit(1)
		} else {
			locked = true
		}
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	store := billing.NewEventStore(svc.Repo(), cfg.WebhookRetentionDays, cfg.ReplayRetentionDays)
	engine := billing.NewReplayEngine(paddle.NewClientFromEnv(), svc, store, cfg.ReplayRetentionDays)

	replayed, err := engine.Run(context.Background())

	if locked {
		if err := cache.ReleaseLock(replayLockKey); err != nil {
			log.Printf("warning: releasing replay lock failed: %v", err)
		}
	}

	if err != nil {
		log.Printf("replay failed after %d events: %v", replayed, err)
		os.Exit(1)
	}
	log.Printf("replayed %d events", replayed)
}

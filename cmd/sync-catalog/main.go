package main

import (
	"context"
	"log"
	"os"

	"github.com/abroun/paddlesync/internal/pkg/billing"
	"github.com/abroun/paddlesync/internal/pkg/database"
	"github.com/abroun/paddlesync/internal/pkg/env"
)

// Syncs the plan and product catalog from the Paddle vendors API.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	billing.Setup(billing.ConfigFromEnv())

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx := context.Background()

	plans, err := svc.SyncPlans(ctx)
	if err != nil {
		log.Printf("plan sync failed after %d plans: %v", plans, err)
		os.Exit(1)
	}
	log.Printf("synchronized %d plans", plans)

	products, err := svc.SyncProducts(ctx)
	if err != nil {
		log.Printf("product sync failed after %d products: %v", products, err)
		os.Exit(1)
	}
	log.Printf("synchronized %d products", products)
}

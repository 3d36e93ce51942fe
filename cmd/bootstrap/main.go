package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting schema bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	if err := dataLayer.PgClient.HealthCheck(ctx); err != nil {
		log.Fatalf("postgres not reachable: %v", err)
	}

	if err := dataLayer.PgClient.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate story records: %v", err)
	}

	// 在事务内校验仓储可用
	if err := dataLayer.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := dataLayer.Records.ListByOwner(txCtx, "", 1)
		return err
	}); err != nil {
		log.Fatalf("story record table not queryable: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}

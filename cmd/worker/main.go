package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/studyloop/engine/internal/agentrun"
	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/analytics"
	"github.com/studyloop/engine/internal/blob"
	"github.com/studyloop/engine/internal/database"
	"github.com/studyloop/engine/internal/extraction"
	"github.com/studyloop/engine/internal/pipeline"
)

func main() {
	// Optional .env for local runs
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var aiClient ai.Client
	if os.Getenv("MOCK_AI") == "true" {
		log.Println("AI client using mock responses")
		aiClient = ai.NewMockClient()
	} else {
		aiClient = ai.NewAnthropicClient()
	}

	blobDir := os.Getenv("BLOB_DIR")
	if blobDir == "" {
		blobDir = "data/blobs"
	}
	blobs, err := blob.NewFSStore(blobDir)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	runs := agentrun.NewTracker(db)
	queues := pipeline.NewStore(db, runs)
	extractor := extraction.New(aiClient, blobs)
	worker := pipeline.NewWorker(queues, runs, extractor, aiClient)
	sweep := pipeline.NewAnalyticsSweep(analytics.NewStore(db), runs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := sweep.Start()
	defer scheduler.Stop()

	worker.Run(ctx)
	log.Println("Worker shut down")
}

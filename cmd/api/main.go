package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/corvid-labs/corpusmind/internal/api"
	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.Bootstrap(migrateCtx, cfg.PostgresURL); err != nil {
		log.Fatalf("schema bootstrap: %v", err)
	}

	h := api.NewServer(cfg)
	log.Printf("corpusmind api listening on %s llm_provider=%s embed_provider=%s", cfg.APIAddr, cfg.LLMProvider, cfg.EmbedProvider)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}

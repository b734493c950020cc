package main

import (
	"context"
	"log"
	"os"

	"roleplay-agent-be/internal/config"
	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/repository/implementation"
	"roleplay-agent-be/pkg/database"
	"roleplay-agent-be/pkg/embedding"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Seeds a small persona corpus so a fresh install has something to retrieve
// against. Embeds synchronously; the REST path queues instead.
func main() {
	cfg := config.Load()

	dsn := cfg.Database.Connection
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	var embedder embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embedder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		embedder = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	passages := []entity.PersonaPassage{
		{
			Characters: []string{"Elara"},
			Content:    "Elara grew up in the cliffside city of Meridian, apprenticed to the lighthouse keeper. She still counts the seconds between imagined flashes when she is nervous.",
			SourceType: "backstory",
			Topic:      "childhood",
		},
		{
			Characters: []string{"Elara"},
			Content:    "Elara speaks carefully and dislikes exaggeration. When she is unsure of a fact she says so outright rather than guessing.",
			SourceType: "personality",
			Topic:      "speech",
		},
		{
			Characters: []string{"Elara", "Bram"},
			Content:    "Elara and Bram crossed the Saltglass Flats together the winter the caravans stopped running. Neither of them talks about the third traveler.",
			SourceType: "backstory",
			Topic:      "shared_history",
		},
		{
			Characters: []string{"Bram"},
			Content:    "Bram is a retired caravan guard with a dry sense of humor. He answers questions with stories that take a while to get to the point, but they always do.",
			SourceType: "personality",
			Topic:      "speech",
		},
	}

	ctx := context.Background()
	repo := implementation.NewPersonaPassageRepository(db)

	seeded := 0
	for i := range passages {
		p := &passages[i]
		p.Id = uuid.New()

		vec, err := embedder.Generate(ctx, p.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("Warn: embedding failed for passage %d: %v (skipping)", i, err)
			continue
		}
		p.Embedding = vec

		if err := repo.Create(ctx, p); err != nil {
			log.Printf("Warn: insert failed for passage %d: %v (skipping)", i, err)
			continue
		}
		seeded++
	}

	color.Green("✅ Seeded %d persona passages.", seeded)
}

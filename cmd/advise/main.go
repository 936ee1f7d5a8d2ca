package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/wealthflow/internal/advice"
	"github.com/dvloznov/wealthflow/internal/auth"
	"github.com/dvloznov/wealthflow/internal/demo"
	"github.com/dvloznov/wealthflow/internal/logger"
	"github.com/dvloznov/wealthflow/internal/storage/inmemory"
	"github.com/dvloznov/wealthflow/internal/syncstore"
)

// advise seeds the demo portfolio into an in-memory store and prints the
// AI advisor's commentary on it. Useful for iterating on the prompt without
// a running server.
func main() {
	var (
		model      = flag.String("model", advice.DefaultModelName, "Gemini model to use")
		promptOnly = flag.Bool("prompt-only", false, "Print the prompt instead of calling the model")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	db := inmemory.NewStore()
	authSvc := auth.NewInMemoryService()

	user, err := demo.Seed(ctx, authSvc, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed demo data")
	}

	store := syncstore.New(db, log)
	if err := store.Attach(ctx, user.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to attach sync store")
	}
	defer store.Detach()

	if *promptOnly {
		prompt, err := advice.BuildAdvicePrompt(store.Accounts(), store.Transactions(), store.Holdings())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build prompt")
		}
		fmt.Println(prompt)
		return
	}

	var gen advice.TextGenerator
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		gen = advice.NewGeminiGenerator(*model)
	}
	advisor := advice.New(gen, log)

	text, err := advisor.FinancialAdvice(ctx, store.Accounts(), store.Transactions(), store.Holdings())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate advice")
	}
	fmt.Println(text)
}

package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/talenthub/internal/server"
	"github.com/dmitrijs2005/talenthub/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	ctx := context.Background()

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

package main

import (
	"context"
	"log"
	"os"

	"github.com/notecompanion/pipeline/internal/client/cli"
	"github.com/notecompanion/pipeline/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, cli.CommandArgs(os.Args[1:])); err != nil {
		log.Fatalf("%v", err)
	}
}

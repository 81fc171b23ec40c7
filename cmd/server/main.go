package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"skirmish/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, app.Options{}); err != nil {
		log.Fatalf("%v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	graphberrycmd "github.com/graphberry/graphberry/internal/cmd/graphberry"
)

func main() {
	cfg, err := graphberrycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GRAPHBERRY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := graphberrycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

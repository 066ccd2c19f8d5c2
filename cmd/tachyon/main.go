package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tachyontrading/tachyon/cmd/tachyon/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := commands.Main(ctx); err != nil {
		os.Exit(1)
	}
}

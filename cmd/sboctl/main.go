package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pavanmanishd/callable/internal/sboctl"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := sboctl.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "sboctl:", err)
		return 1
	}
	return 0
}

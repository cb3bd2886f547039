package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aashish23092/conciliador/cmd"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewApp(version).Execute(ctx, os.Args[1:]); err != nil {
		stop()
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
